package texmap

import _ "embed"

// Embedded WGSL sources. Every device compiles the same programs.

//go:embed shaders/raster.wgsl
var rasterShaderSource string

//go:embed shaders/jfa.wgsl
var jfaShaderSource string

//go:embed shaders/derive.wgsl
var deriveShaderSource string

// Program names used by the pipeline.
const (
	ProgramNameRaster = "raster"
	ProgramNameJFA    = "jfa"
	ProgramNameDerive = "derive"
)

// Programs returns the descriptors of every program the pipeline needs.
func Programs() []ProgramDesc {
	return []ProgramDesc{
		{Name: ProgramNameRaster, Kind: ProgramRaster, Source: rasterShaderSource, Entry: "fs_main", Outputs: 4},
		{Name: ProgramNameJFA, Kind: ProgramFullscreen, Source: jfaShaderSource, Entry: "main", Inputs: 1, Outputs: 1},
		{Name: ProgramNameDerive, Kind: ProgramFullscreen, Source: deriveShaderSource, Entry: "main", Inputs: 1, Outputs: 2},
	}
}
