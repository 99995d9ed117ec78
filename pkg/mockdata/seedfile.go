package mockdata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a network from a YAML seed file. Field names are the lowercased struct field
// names, the same as stored documents.
func LoadFile(path string) (*Network, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	network := &Network{}
	if err := yaml.NewDecoder(file).Decode(network); err != nil {
		return nil, fmt.Errorf("decoding seed file %s: %w", path, err)
	}

	for _, stop := range network.Stops {
		if stop.Routes == nil {
			stop.Routes = []string{}
		}
	}

	return network, nil
}

func (n *Network) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)

	if err := encoder.Encode(n); err != nil {
		return err
	}

	return encoder.Close()
}
