package host

import (
	"encoding/json"
	"fmt"

	"tools.zach/dev/editorcord/internal/migrate"
)

func init() {
	migrate.Host.Register(migrate.Migration{
		Version:     2,
		Description: "rename scene/playMode/unityVersion to context/active/engineVersion",
		Upgrade: renameKeys(map[string]string{
			"scene":        "context",
			"playMode":     "active",
			"unityVersion": "engineVersion",
		}),
	})
}

// renameKeys returns an upgrade that moves top-level JSON keys. Existing
// values under the new name win.
func renameKeys(renames map[string]string) func([]byte) ([]byte, error) {
	return func(data []byte) ([]byte, error) {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding host state: %w", err)
		}
		for from, to := range renames {
			v, ok := doc[from]
			if !ok {
				continue
			}
			delete(doc, from)
			if _, taken := doc[to]; !taken {
				doc[to] = v
			}
		}
		return json.Marshal(doc)
	}
}
