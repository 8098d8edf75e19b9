package block

import "encoding/json"

// Config carries the recognized options for one block declaration. The
// engine passes it through opaquely; only the block's own constructor
// interprets its contents.
type Config map[string]interface{}

// Construct will Marshal the Config and then Unmarshal it into the
// named struct, turning the fuzzy map into a concrete configuration.
func (c Config) Construct(conf interface{}) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, conf)
}

// GetString returns the value stored in the config under the given key, or
// an empty string if the key doesn't exist, or isn't a string value.
func (c Config) GetString(key string) string {
	i, ok := c[key]
	if !ok {
		return ""
	}
	s, ok := i.(string)
	if !ok {
		return ""
	}
	return s
}
