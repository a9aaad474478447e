package metadata

import (
	"fmt"
	"strings"
)

/** @brief Optional device capabilities. */
type Features uint64

const (
	// Task and mesh shader stages plus the mesh-task draw call.
	FeatureExperimentalMeshShader Features = 1 << iota
	// Mesh shaders rendering to more than one view.
	FeatureExperimentalMeshShaderMultiview
	FeatureTimestampQuery
	FeaturePushConstants
)

var featureNames = []struct {
	f    Features
	name string
}{
	{FeatureExperimentalMeshShader, "EXPERIMENTAL_MESH_SHADER"},
	{FeatureExperimentalMeshShaderMultiview, "EXPERIMENTAL_MESH_SHADER_MULTIVIEW"},
	{FeatureTimestampQuery, "TIMESTAMP_QUERY"},
	{FeaturePushConstants, "PUSH_CONSTANTS"},
}

func (f Features) Contains(other Features) bool {
	return f&other == other
}

func (f Features) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, n := range featureNames {
		if f&n.f != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

/**
 * @brief Opt-in for features whose behavior may still change between driver releases.
 * Requesting an experimental feature without it is rejected by the backend.
 */
type ExperimentalFeatures struct {
	enabled bool
}

func ExperimentalFeaturesEnabled() ExperimentalFeatures {
	return ExperimentalFeatures{enabled: true}
}

func (e ExperimentalFeatures) IsEnabled() bool {
	return e.enabled
}

/** @brief Upper bounds a device guarantees. Every field is a "max" limit: bigger is better. */
type Limits struct {
	MaxTextureDimension2D         uint32
	MaxColorAttachments           uint32
	MaxTaskWorkgroupTotalCount    uint32
	MaxTaskWorkgroupsPerDimension uint32
	MaxMeshMultiviewViewCount     uint32
	MaxMeshOutputLayers           uint32
}

// DefaultLimits are the limits every supported adapter must meet. Mesh limits are zero
// so that adapters without mesh shading still qualify.
func DefaultLimits() Limits {
	return Limits{
		MaxTextureDimension2D: 8192,
		MaxColorAttachments:   8,
	}
}

// UsingRecommendedMinimumMeshShaderValues raises the mesh limits to values every
// mesh-capable adapter is expected to support.
func (l Limits) UsingRecommendedMinimumMeshShaderValues() Limits {
	l.MaxTaskWorkgroupTotalCount = 65536
	l.MaxTaskWorkgroupsPerDimension = 256
	// Some software implementations report no multiview support at all.
	l.MaxMeshMultiviewViewCount = 0
	l.MaxMeshOutputLayers = 8
	return l
}

/** @brief One limit the supported set falls short of. */
type LimitFailure struct {
	Name      string
	Required  uint32
	Supported uint32
}

func (f LimitFailure) String() string {
	return fmt.Sprintf("%s: required %d, supported %d", f.Name, f.Required, f.Supported)
}

// Failures lists every limit of l that supported does not satisfy.
func (l Limits) Failures(supported Limits) []LimitFailure {
	var out []LimitFailure
	check := func(name string, required, have uint32) {
		if have < required {
			out = append(out, LimitFailure{Name: name, Required: required, Supported: have})
		}
	}
	check("max_texture_dimension_2d", l.MaxTextureDimension2D, supported.MaxTextureDimension2D)
	check("max_color_attachments", l.MaxColorAttachments, supported.MaxColorAttachments)
	check("max_task_workgroup_total_count", l.MaxTaskWorkgroupTotalCount, supported.MaxTaskWorkgroupTotalCount)
	check("max_task_workgroups_per_dimension", l.MaxTaskWorkgroupsPerDimension, supported.MaxTaskWorkgroupsPerDimension)
	check("max_mesh_multiview_view_count", l.MaxMeshMultiviewViewCount, supported.MaxMeshMultiviewViewCount)
	check("max_mesh_output_layers", l.MaxMeshOutputLayers, supported.MaxMeshOutputLayers)
	return out
}

// Check reports whether supported satisfies every limit of l.
func (l Limits) Check(supported Limits) bool {
	return len(l.Failures(supported)) == 0
}
