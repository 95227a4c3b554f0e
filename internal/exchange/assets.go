package exchange

import (
	"fmt"
	"os"
	"path/filepath"

	"ezdawg-sip-go/internal/models"

	"gopkg.in/yaml.v2"
)

type staticUniverse struct {
	Assets []models.SpotAsset `yaml:"assets"`
}

// LoadStaticUniverse reads a yaml asset universe for offline and dev use.
// Every entry needs a name; indexes must be unique because plans pin assets
// by index.
func LoadStaticUniverse(assetsFile string) ([]models.SpotAsset, error) {
	var assetsPath string
	if filepath.IsAbs(assetsFile) {
		assetsPath = assetsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		assetsPath = filepath.Join(wd, assetsFile)
	}

	data, err := os.ReadFile(assetsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", assetsFile, err)
	}

	var config staticUniverse
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", assetsFile, err)
	}

	seen := make(map[int]string, len(config.Assets))
	for i, asset := range config.Assets {
		if asset.Name == "" {
			return nil, fmt.Errorf("asset at position %d missing name", i)
		}
		if prev, ok := seen[asset.Index]; ok {
			return nil, fmt.Errorf("assets %s and %s share index %d", prev, asset.Name, asset.Index)
		}
		seen[asset.Index] = asset.Name
	}

	return config.Assets, nil
}
