package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ProjectFileName is the per-directory override file.
const ProjectFileName = ".hiconvert.toml"

// Project holds per-directory overrides. Unset fields leave the user
// configuration untouched.
//
//	[server]
//	base_url = "http://converter.internal:10000"
//
//	[upload]
//	filter = "custom"
//	filter_contains = "plan"
type Project struct {
	Server struct {
		BaseURL    *string `toml:"base_url"`
		AcceptJSON *bool   `toml:"accept_json"`
	} `toml:"server"`
	Upload struct {
		Multiple        *bool   `toml:"multiple"`
		Filter          *string `toml:"filter"`
		FilterContains  *string `toml:"filter_contains"`
		FilterExtension *string `toml:"filter_extension"`
		FilterMIMEType  *string `toml:"filter_mime_type"`
		FilterUpload    *bool   `toml:"filter_upload"`
		DownloadDir     *string `toml:"download_dir"`
	} `toml:"upload"`
}

// LoadProject reads dir/.hiconvert.toml. It returns (nil, nil) when the file
// does not exist.
func LoadProject(dir string) (*Project, error) {
	path := filepath.Join(dir, ProjectFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var p Project
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &p, nil
}

// ApplyProject merges p over c and re-validates. A nil p is a no-op.
// Relative download directories resolve against dir.
func (c *Config) ApplyProject(p *Project, dir string) error {
	if p == nil {
		return nil
	}

	setString(&c.Server.BaseURL, p.Server.BaseURL)
	setBool(&c.Server.AcceptJSON, p.Server.AcceptJSON)
	setBool(&c.Upload.Multiple, p.Upload.Multiple)
	setString(&c.Upload.Filter, p.Upload.Filter)
	setString(&c.Upload.FilterContains, p.Upload.FilterContains)
	setString(&c.Upload.FilterExtension, p.Upload.FilterExtension)
	setString(&c.Upload.FilterMIMEType, p.Upload.FilterMIMEType)
	setBool(&c.Upload.FilterUpload, p.Upload.FilterUpload)
	if p.Upload.DownloadDir != nil {
		d := *p.Upload.DownloadDir
		if d != "" && !filepath.IsAbs(d) {
			d = filepath.Join(dir, d)
		}
		c.Upload.DownloadDir = d
	}

	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid %s: %w", ProjectFileName, err)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
