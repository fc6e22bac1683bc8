package device

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// systemDoc is the on-disk shape of a SIMSYCL_SYSTEM descriptor.
type systemDoc struct {
	MaxComputeUnits       int   `json:"max_compute_units" yaml:"max_compute_units"`
	MaxWorkGroupSize      int   `json:"max_work_group_size" yaml:"max_work_group_size"`
	MaxWorkItemSizes      [3]int `json:"max_work_item_sizes" yaml:"max_work_item_sizes"`
	SubGroupSizes         []int `json:"sub_group_sizes" yaml:"sub_group_sizes"`
	LocalMemSize          int   `json:"local_mem_size" yaml:"local_mem_size"`
	MaxNumSubGroups       int   `json:"max_num_sub_groups" yaml:"max_num_sub_groups"`
	MaxWorkItemDimensions int   `json:"max_work_item_dimensions" yaml:"max_work_item_dimensions"`
}

func (d systemDoc) toCaps() Caps {
	c := Default()
	if d.MaxComputeUnits != 0 {
		c.MaxComputeUnits = d.MaxComputeUnits
	}
	if d.MaxWorkGroupSize != 0 {
		c.MaxWorkGroupSize = d.MaxWorkGroupSize
	}
	if d.MaxWorkItemSizes != [3]int{} {
		c.MaxWorkItemSizes = d.MaxWorkItemSizes
	}
	if len(d.SubGroupSizes) > 0 {
		c.SubGroupSizes = d.SubGroupSizes
	}
	if d.LocalMemSize != 0 {
		c.LocalMemSize = d.LocalMemSize
	}
	if d.MaxNumSubGroups != 0 {
		c.MaxNumSubGroups = d.MaxNumSubGroups
	}
	if d.MaxWorkItemDimensions != 0 {
		c.MaxWorkItemDimensions = d.MaxWorkItemDimensions
	}
	return c
}

// LoadSystemJSON loads a device descriptor from a system.json file, per
// spec.md §6's SIMSYCL_SYSTEM=path/to/system.json control. JSON is the
// format the spec names explicitly, so the standard library decoder is
// used directly (see DESIGN.md).
func LoadSystemJSON(path string) (Caps, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Caps{}, fmt.Errorf("device: reading system descriptor %q: %w", path, err)
	}
	var doc systemDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Caps{}, fmt.Errorf("device: parsing system descriptor %q: %w", path, err)
	}
	return doc.toCaps(), nil
}

// LoadSystemYAML loads a device descriptor from a YAML file. This is an
// alternate, opt-in loader for test fixtures and the sample programs'
// device files, grounded on the teacher's YAML-tagged program structs
// (core/program.go). FromEnv uses it when SIMSYCL_SYSTEM names a file
// ending in .yaml or .yml.
func LoadSystemYAML(path string) (Caps, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Caps{}, fmt.Errorf("device: reading system descriptor %q: %w", path, err)
	}
	var doc systemDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Caps{}, fmt.Errorf("device: parsing system descriptor %q: %w", path, err)
	}
	return doc.toCaps(), nil
}

// LoadSystem dispatches to LoadSystemJSON or LoadSystemYAML based on the
// file extension, for use by FromEnv.
func LoadSystem(path string) (Caps, error) {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return LoadSystemYAML(path)
	}
	return LoadSystemJSON(path)
}

// FromEnv resolves the device configuration from SIMSYCL_SYSTEM, falling
// back to Default() when unset.
func FromEnv() (Caps, error) {
	path := os.Getenv("SIMSYCL_SYSTEM")
	if path == "" {
		return Default(), nil
	}
	return LoadSystem(path)
}
