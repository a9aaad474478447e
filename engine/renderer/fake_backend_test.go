package renderer

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/meshlet/engine/core"
	"github.com/spaghettifunk/meshlet/engine/renderer/metadata"
)

// recorder is shared by every fake so tests can assert on call order.
type recorder struct {
	calls []string
}

func (r *recorder) record(format string, args ...interface{}) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) only(names ...string) []string {
	keep := map[string]bool{}
	for _, n := range names {
		keep[n] = true
	}
	out := []string{}
	for _, c := range r.calls {
		if keep[c] {
			out = append(out, c)
		}
	}
	return out
}

type fakeWindow struct {
	width, height uint32
}

func (w *fakeWindow) FramebufferSize() (uint32, uint32) {
	return w.width, w.height
}

type fakeBackend struct {
	rec       *recorder
	adapters  []*fakeAdapter
	surface   *fakeSurface
	instance  *fakeInstance
	lastDesc  *InstanceDescriptor
	createErr error
}

func newFakeBackend(adapters ...*fakeAdapter) *fakeBackend {
	rec := &recorder{}
	for _, a := range adapters {
		a.rec = rec
		if a.device != nil {
			a.device.rec = rec
			a.device.queue.rec = rec
		}
	}
	return &fakeBackend{
		rec:      rec,
		adapters: adapters,
		surface: &fakeSurface{
			rec: rec,
			caps: metadata.SurfaceCapabilities{
				Formats:      []metadata.TextureFormat{metadata.TextureFormatBGRA8UnormSrgb, metadata.TextureFormatBGRA8Unorm},
				PresentModes: []metadata.PresentMode{metadata.PresentModeFifo, metadata.PresentModeMailbox},
				AlphaModes:   []metadata.CompositeAlphaMode{metadata.CompositeAlphaModeOpaque},
			},
		},
	}
}

func (b *fakeBackend) Name() string                { return "fake" }
func (b *fakeBackend) Backends() metadata.Backends { return metadata.BackendVulkan }

func (b *fakeBackend) CreateInstance(desc *InstanceDescriptor) (Instance, error) {
	b.lastDesc = desc
	if b.createErr != nil {
		return nil, b.createErr
	}
	b.instance = &fakeInstance{backend: b}
	return b.instance, nil
}

type fakeInstance struct {
	backend          *fakeBackend
	validationErrors uint64
	destroyed        bool
}

func (i *fakeInstance) CreateSurface(window metadata.Window) (Surface, error) {
	i.backend.surface.window = window
	return i.backend.surface, nil
}

func (i *fakeInstance) EnumerateAdapters(backends metadata.Backends) ([]Adapter, error) {
	out := []Adapter{}
	for _, a := range i.backend.adapters {
		out = append(out, a)
	}
	return out, nil
}

func (i *fakeInstance) ValidationErrors() uint64 { return i.validationErrors }

func (i *fakeInstance) Destroy() {
	i.destroyed = true
	i.backend.rec.record("instance.destroy")
}

type fakeAdapter struct {
	rec       *recorder
	info      metadata.AdapterInfo
	features  metadata.Features
	limits    metadata.Limits
	device    *fakeDevice
	deviceErr error
	// leave the device request unresolved
	hold      bool
	noSurface bool
	lastDesc  *DeviceDescriptor
	request   *DeviceRequest
}

func meshLimits() metadata.Limits {
	return metadata.Limits{
		MaxTextureDimension2D:         16384,
		MaxColorAttachments:           8,
		MaxTaskWorkgroupTotalCount:    1 << 22,
		MaxTaskWorkgroupsPerDimension: 65535,
		MaxMeshMultiviewViewCount:     1,
		MaxMeshOutputLayers:           2048,
	}
}

func newMeshAdapter(name string) *fakeAdapter {
	return &fakeAdapter{
		info:     metadata.AdapterInfo{Name: name, Backend: metadata.BackendVulkan, DeviceType: metadata.DeviceTypeDiscreteGPU},
		features: metadata.FeatureExperimentalMeshShader,
		limits:   meshLimits(),
		device:   newFakeDevice(),
	}
}

func newPlainAdapter(name string) *fakeAdapter {
	a := newMeshAdapter(name)
	a.features = 0
	a.limits = metadata.Limits{MaxTextureDimension2D: 8192, MaxColorAttachments: 8}
	return a
}

func (a *fakeAdapter) Info() metadata.AdapterInfo  { return a.info }
func (a *fakeAdapter) Features() metadata.Features { return a.features }
func (a *fakeAdapter) Limits() metadata.Limits     { return a.limits }

func (a *fakeAdapter) RequestDevice(desc *DeviceDescriptor) *DeviceRequest {
	a.lastDesc = desc
	a.request = NewDeviceRequest()
	switch {
	case a.hold:
	case a.deviceErr != nil:
		a.request.Resolve(nil, nil, a.deviceErr)
	default:
		a.request.Resolve(a.device, a.device.queue, nil)
	}
	return a.request
}

type fakeSurface struct {
	rec          *recorder
	window       metadata.Window
	caps         metadata.SurfaceCapabilities
	configs      []metadata.SurfaceConfiguration
	configureErr error
	acquireErrs  []error
	textures     []*fakeTexture
	destroyed    bool
}

func (s *fakeSurface) Capabilities(adapter Adapter) (metadata.SurfaceCapabilities, error) {
	return s.caps, nil
}

func (s *fakeSurface) DefaultConfig(adapter Adapter, width, height uint32) *metadata.SurfaceConfiguration {
	if fa, ok := adapter.(*fakeAdapter); ok && fa.noSurface {
		return nil
	}
	cfg, ok := s.caps.DefaultConfiguration(width, height)
	if !ok {
		return nil
	}
	return cfg
}

func (s *fakeSurface) Configure(device Device, config *metadata.SurfaceConfiguration) error {
	s.rec.record("configure")
	if config.Width == 0 || config.Height == 0 {
		return core.ErrZeroSizedSurface
	}
	if s.configureErr != nil {
		return s.configureErr
	}
	s.configs = append(s.configs, *config)
	return nil
}

func (s *fakeSurface) current() metadata.SurfaceConfiguration {
	return s.configs[len(s.configs)-1]
}

func (s *fakeSurface) CurrentTexture() (SurfaceTexture, error) {
	s.rec.record("acquire")
	if len(s.acquireErrs) > 0 {
		err := s.acquireErrs[0]
		s.acquireErrs = s.acquireErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	cfg := s.current()
	t := &fakeTexture{rec: s.rec, format: cfg.Format, width: cfg.Width, height: cfg.Height}
	s.textures = append(s.textures, t)
	return t, nil
}

func (s *fakeSurface) Destroy() {
	s.destroyed = true
	s.rec.record("surface.destroy")
}

type fakeTexture struct {
	rec           *recorder
	format        metadata.TextureFormat
	width, height uint32
	presented     int
	discarded     bool
}

func (t *fakeTexture) Suboptimal() bool                 { return false }
func (t *fakeTexture) Format() metadata.TextureFormat   { return t.format }
func (t *fakeTexture) CreateView() (TextureView, error) { return &fakeView{t}, nil }

func (t *fakeTexture) Present() error {
	t.rec.record("present")
	t.presented++
	return nil
}

func (t *fakeTexture) Discard() {
	t.rec.record("discard")
	t.discarded = true
}

type fakeView struct {
	texture *fakeTexture
}

func (v *fakeView) Format() metadata.TextureFormat { return v.texture.format }
func (v *fakeView) Size() (uint32, uint32)         { return v.texture.width, v.texture.height }

type fakeDevice struct {
	rec          *recorder
	queue        *fakeQueue
	moduleDescs  []*ShaderModuleDescriptor
	pipelineDesc *MeshPipelineDescriptor
	encoders     []*fakeEncoder
	pipelineErr  error
	beginErr     error
	endErr       error
	finishErr    error
	destroyed    bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{queue: &fakeQueue{}}
}

func (d *fakeDevice) Features() metadata.Features { return metadata.FeatureExperimentalMeshShader }
func (d *fakeDevice) Limits() metadata.Limits     { return meshLimits() }

func (d *fakeDevice) CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error) {
	d.moduleDescs = append(d.moduleDescs, desc)
	return &fakeObject{rec: d.rec, name: "module"}, nil
}

func (d *fakeDevice) CreatePipelineLayout(desc *PipelineLayoutDescriptor) (PipelineLayout, error) {
	return &fakeObject{rec: d.rec, name: "layout"}, nil
}

func (d *fakeDevice) CreateMeshPipeline(desc *MeshPipelineDescriptor) (RenderPipeline, error) {
	if d.pipelineErr != nil {
		return nil, d.pipelineErr
	}
	d.pipelineDesc = desc
	return &fakePipeline{fakeObject: fakeObject{rec: d.rec, name: "pipeline"}, format: desc.Fragment.Targets[0].Format}, nil
}

func (d *fakeDevice) CreateCommandEncoder(desc *CommandEncoderDescriptor) (CommandEncoder, error) {
	e := &fakeEncoder{rec: d.rec, beginErr: d.beginErr, endErr: d.endErr, finishErr: d.finishErr}
	d.encoders = append(d.encoders, e)
	return e, nil
}

func (d *fakeDevice) WaitIdle() error {
	d.rec.record("device.wait")
	return nil
}

func (d *fakeDevice) Destroy() {
	d.destroyed = true
	d.rec.record("device.destroy")
}

type fakeQueue struct {
	rec       *recorder
	submitted []CommandBuffer
	submitErr error
}

func (q *fakeQueue) Submit(commands ...CommandBuffer) error {
	q.rec.record("submit")
	if q.submitErr != nil {
		return q.submitErr
	}
	q.submitted = append(q.submitted, commands...)
	return nil
}

type fakeObject struct {
	rec       *recorder
	name      string
	destroyed bool
}

func (o *fakeObject) Destroy() {
	o.destroyed = true
	o.rec.record(o.name + ".destroy")
}

type fakePipeline struct {
	fakeObject
	format metadata.TextureFormat
}

func (p *fakePipeline) Format() metadata.TextureFormat { return p.format }

type fakeEncoder struct {
	rec       *recorder
	passes    []*fakePass
	beginErr  error
	endErr    error
	finishErr error
}

func (e *fakeEncoder) BeginRenderPass(desc *RenderPassDescriptor) (RenderPassEncoder, error) {
	if e.beginErr != nil {
		return nil, e.beginErr
	}
	p := &fakePass{desc: desc, endErr: e.endErr}
	e.passes = append(e.passes, p)
	return p, nil
}

func (e *fakeEncoder) Finish() (CommandBuffer, error) {
	if e.finishErr != nil {
		return nil, e.finishErr
	}
	return &fakeCommands{passes: len(e.passes)}, nil
}

type fakePass struct {
	desc     *RenderPassDescriptor
	pipeline RenderPipeline
	draws    [][3]uint32
	endErr   error
	ended    bool
}

func (p *fakePass) SetPipeline(pipeline RenderPipeline) { p.pipeline = pipeline }

func (p *fakePass) DrawMeshTasks(x, y, z uint32) {
	p.draws = append(p.draws, [3]uint32{x, y, z})
}

func (p *fakePass) End() error {
	p.ended = true
	return p.endErr
}

type fakeCommands struct {
	passes int
}

func (c *fakeCommands) Label() string { return "frame" }

// testShaders returns minimal binaries that pass SPIR-V header validation.
func testShaders() metadata.ShaderSource {
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, 0x07230203)
	return metadata.ShaderSource{Task: code, Mesh: code, Fragment: code}
}
