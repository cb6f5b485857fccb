package extractor

import "encoding/json"

// jsonLDImages returns image URLs declared in a schema.org JSON-LD block.
// image may be a string, an ImageObject, or a list of either, and the block
// itself may be a list or wrap entities in @graph.
func jsonLDImages(raw []byte) []string {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	var out []string
	collectLDImages(doc, &out, 0)
	return out
}

func collectLDImages(node any, out *[]string, depth int) {
	if depth > 4 {
		return
	}
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			collectLDImages(item, out, depth+1)
		}
	case map[string]any:
		if img, ok := v["image"]; ok {
			*out = append(*out, imageValues(img)...)
		}
		if graph, ok := v["@graph"]; ok {
			collectLDImages(graph, out, depth+1)
		}
	}
}

func imageValues(v any) []string {
	switch img := v.(type) {
	case string:
		return []string{img}
	case map[string]any:
		if u, ok := img["url"].(string); ok {
			return []string{u}
		}
		if u, ok := img["contentUrl"].(string); ok {
			return []string{u}
		}
	case []any:
		var out []string
		for _, item := range img {
			out = append(out, imageValues(item)...)
		}
		return out
	}
	return nil
}
