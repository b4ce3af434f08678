package pack

import "github.com/gogpu/gputypes"

// Shader locations of the flow-line instance attributes.
const (
	FlowLocationPosition1 = 0
	FlowLocationPosition2 = 1
	FlowLocationTimeInfo  = 2
	FlowLocationSpeed     = 3
)

// FlowLayouts returns one instance-rate buffer layout per FlowBuffers slice,
// in the order Position1, Position2, TimeInfo and, if speed is set, Speed.
func FlowLayouts(speed bool) []gputypes.VertexBufferLayout {
	layouts := []gputypes.VertexBufferLayout{
		instanceLayout(PositionStride*4, gputypes.VertexFormatFloat32x4, FlowLocationPosition1),
		instanceLayout(PositionStride*4, gputypes.VertexFormatFloat32x4, FlowLocationPosition2),
		instanceLayout(TimeStride*4, gputypes.VertexFormatFloat32x4, FlowLocationTimeInfo),
	}
	if speed {
		layouts = append(layouts, instanceLayout(SpeedStride*4, gputypes.VertexFormatFloat32x2, FlowLocationSpeed))
	}
	return layouts
}

func instanceLayout(stride uint64, format gputypes.VertexFormat, location uint32) gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: stride,
		StepMode:    gputypes.VertexStepModeInstance,
		Attributes: []gputypes.VertexAttribute{
			{Format: format, Offset: 0, ShaderLocation: location},
		},
	}
}

// MeshLayout returns the vertex buffer layout of MeshBuffers.Vertices.
func MeshLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: MeshVertexFloats * 4,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // position high
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},  // position low
				{Format: gputypes.VertexFormatFloat32x2, Offset: 16, ShaderLocation: 2}, // offset
				{Format: gputypes.VertexFormatFloat32, Offset: 24, ShaderLocation: 3},   // side
				{Format: gputypes.VertexFormatFloat32, Offset: 28, ShaderLocation: 4},   // distance
				{Format: gputypes.VertexFormatFloat32, Offset: 32, ShaderLocation: 5},   // distance width delta
				{Format: gputypes.VertexFormatFloat32, Offset: 36, ShaderLocation: 6},   // total distance
			},
		},
	}
}
