package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lvbealr/gorent/bencode"
)

// --------------------------------------------------------------------------------------------- //

func runDecode(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: gorent decode <bencoded-string>")
	}

	v, err := bencode.DecodeFull([]byte(args[0]))
	if err != nil {
		return err
	}

	fmt.Println(renderJSON(v))

	return nil
}

// --------------------------------------------------------------------------------------------- //

// renderJSON renders a decoded bencode.Value as JSON-like text, matching
// the dictionary key order that was present in the source bencoding.
func renderJSON(v bencode.Value) string {
	switch val := v.(type) {
	case int64:
		return strconv.FormatInt(val, 10)
	case []byte:
		return strconv.Quote(string(val))
	case []bencode.Value:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = renderJSON(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case *bencode.Dict:
		entries := val.Entries()
		parts := make([]string, len(entries))
		for i, e := range entries {
			parts[i] = strconv.Quote(string(e.Key)) + ":" + renderJSON(e.Value)
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return "null"
	}
}
