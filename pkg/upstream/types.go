package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Identifier accepts both JSON strings and numbers as the provider mixes the two
type Identifier string

func (i *Identifier) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*i = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*i = Identifier(strings.TrimSpace(value))
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("identifier %s is neither a string or number", data)
	}
	*i = Identifier(number.String())

	return nil
}

func (i Identifier) String() string {
	return string(i)
}

// Number accepts JSON numbers and numeric strings. Empty strings and null leave it unset.
type Number struct {
	Value float64
	Set   bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)

		if raw == "" {
			*n = Number{}
			return nil
		}
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}

	*n = Number{Value: value, Set: true}

	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}

	return json.Marshal(n.Value)
}

// Pointer returns nil when the provider did not report a value
func (n Number) Pointer() *float64 {
	if !n.Set {
		return nil
	}

	value := n.Value
	return &value
}
