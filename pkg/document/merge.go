package document

import "gopkg.in/yaml.v3"

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	if mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// merge updates dst in place so it carries src's data while keeping dst's
// comments, key order and scalar styles wherever the data is unchanged.
func merge(dst, src *yaml.Node) {
	switch {
	case dst.Kind == yaml.MappingNode && src.Kind == yaml.MappingNode:
		mergeMapping(dst, src)
	case dst.Kind == yaml.SequenceNode && src.Kind == yaml.SequenceNode:
		mergeSequence(dst, src)
	case dst.Kind == yaml.ScalarNode && src.Kind == yaml.ScalarNode:
		// Equal text keeps the hand-chosen style, e.g. an unquoted date.
		if dst.Value != src.Value {
			dst.Value = src.Value
			dst.Tag = src.Tag
			dst.Style = src.Style
		}
	default:
		replace(dst, src)
	}
}

// mergeMapping never removes keys from dst. A key src lacks is one the
// value has no field for, usually something added by hand.
func mergeMapping(dst, src *yaml.Node) {
	for i := 0; i+1 < len(src.Content); i += 2 {
		key, val := src.Content[i], src.Content[i+1]
		if existing := lookup(dst, key.Value); existing != nil {
			merge(existing, val)
			continue
		}
		dst.Content = append(dst.Content, key, val)
	}
}

func mergeSequence(dst, src *yaml.Node) {
	n := len(src.Content)
	if len(dst.Content) < n {
		n = len(dst.Content)
	}
	for i := 0; i < n; i++ {
		merge(dst.Content[i], src.Content[i])
	}
	switch {
	case len(dst.Content) > len(src.Content):
		dst.Content = dst.Content[:len(src.Content)]
	case len(src.Content) > len(dst.Content):
		dst.Content = append(dst.Content, src.Content[n:]...)
	}
}

// replace swaps dst's data for src's, carrying over dst's comments.
func replace(dst, src *yaml.Node) {
	head, line, foot := dst.HeadComment, dst.LineComment, dst.FootComment
	*dst = *src
	dst.HeadComment, dst.LineComment, dst.FootComment = head, line, foot
}
