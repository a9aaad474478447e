package metadata

type PrimitiveTopology uint8

const (
	PrimitiveTopologyTriangleList PrimitiveTopology = iota
	PrimitiveTopologyTriangleStrip
	PrimitiveTopologyLineList
	PrimitiveTopologyPointList
)

type FrontFace uint8

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

type FaceCullMode uint8

const (
	FaceCullModeNone FaceCullMode = iota
	FaceCullModeFront
	FaceCullModeBack
)

type PolygonMode uint8

const (
	PolygonModeFill PolygonMode = iota
	PolygonModeLine
)

/**
 * @brief Rasterization setup. Winding is expressed with a y-up clip space,
 * backends flip as needed.
 */
type PrimitiveState struct {
	Topology    PrimitiveTopology
	FrontFace   FrontFace
	CullMode    FaceCullMode
	PolygonMode PolygonMode
}

type MultisampleState struct {
	Count                  uint32
	Mask                   uint64
	AlphaToCoverageEnabled bool
}

// DefaultMultisampleState is single sampled with every sample enabled.
func DefaultMultisampleState() MultisampleState {
	return MultisampleState{Count: 1, Mask: ^uint64(0)}
}

type BlendFactor uint8

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
)

type BlendOperation uint8

const (
	BlendOperationAdd BlendOperation = iota
	BlendOperationSubtract
)

type BlendComponent struct {
	SrcFactor BlendFactor
	DstFactor BlendFactor
	Operation BlendOperation
}

/** @brief Nil blend state on a color target means blending is disabled. */
type BlendState struct {
	Color BlendComponent
	Alpha BlendComponent
}

// BlendStateReplace overwrites the destination with the source.
var BlendStateReplace = BlendState{
	Color: BlendComponent{SrcFactor: BlendFactorOne, DstFactor: BlendFactorZero, Operation: BlendOperationAdd},
	Alpha: BlendComponent{SrcFactor: BlendFactorOne, DstFactor: BlendFactorZero, Operation: BlendOperationAdd},
}

// IsReplace reports whether blending leaves the source untouched.
func (b *BlendState) IsReplace() bool {
	return b == nil || *b == BlendStateReplace
}

type ColorWrites uint8

const (
	ColorWriteRed ColorWrites = 1 << iota
	ColorWriteGreen
	ColorWriteBlue
	ColorWriteAlpha

	ColorWriteAll = ColorWriteRed | ColorWriteGreen | ColorWriteBlue | ColorWriteAlpha
)

type ColorTargetState struct {
	Format    TextureFormat
	Blend     *BlendState
	WriteMask ColorWrites
}

type DepthStencilState struct {
	Format            TextureFormat
	DepthWriteEnabled bool
}
