// Package config loads the area descriptor table ffsctl needs to open a
// flash image, from a YAML layout file, since the descriptor table
// is a property of the device layout rather than something the filesystem
// core can discover on its own (§6).
package config

import (
	"fmt"

	"github.com/spf13/viper"

	ffs "github.com/embeddedfs/flashfs"
)

// Area is the YAML-friendly mirror of ffs.AreaDesc.
type Area struct {
	ID     uint16 `mapstructure:"id" yaml:"id"`
	Offset uint32 `mapstructure:"offset" yaml:"offset"`
	Length uint32 `mapstructure:"length" yaml:"length"`
}

// Layout is the top-level shape of an image's descriptor file: the backing
// file path and its area table.
type Layout struct {
	Image string `mapstructure:"image" yaml:"image"`
	Areas []Area `mapstructure:"areas" yaml:"areas"`
}

// Load reads a layout from path (YAML), defaulting the format by
// extension the way viper does for any of its supported config types.
func Load(path string) (*Layout, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read layout %s: %w", path, err)
	}
	var l Layout
	if err := v.Unmarshal(&l); err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", path, err)
	}
	if len(l.Areas) == 0 {
		return nil, fmt.Errorf("layout %s: no areas defined", path)
	}
	return &l, nil
}

// Descriptors converts a Layout's area table into the ffs.AreaDesc slice
// FormatFull/RestoreFull expect.
func (l *Layout) Descriptors() []ffs.AreaDesc {
	descs := make([]ffs.AreaDesc, len(l.Areas))
	for i, a := range l.Areas {
		descs[i] = ffs.AreaDesc{ID: a.ID, Offset: a.Offset, Length: a.Length}
	}
	return descs
}
