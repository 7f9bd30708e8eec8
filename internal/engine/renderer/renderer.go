// Package renderer draws triangle meshes with per-vertex colors.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/mesh"
	"github.com/Faultbox/meshview/internal/engine/shader"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/pkg/math"
)

const vertexShaderSrc = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec3 aColor;

uniform mat4 uProjection;
uniform mat4 uView;

out vec3 vNormal;
out vec3 vColor;

void main() {
	gl_Position = uProjection * uView * vec4(aPos, 1.0);
	vNormal = aNormal;
	vColor = aColor;
}
`

const fragmentShaderSrc = `
#version 410 core

in vec3 vNormal;
in vec3 vColor;

uniform vec3 uLightDir;

out vec4 FragColor;

void main() {
	vec3 n = normalize(vNormal);
	float diffuse = max(dot(n, -uLightDir), 0.0);
	float light = 0.35 + 0.65 * diffuse;
	FragColor = vec4(vColor * light, 1.0);
}
`

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

// Renderer owns the GPU state for one mesh: an interleaved
// position+normal buffer that changes only when the mesh does, and a
// separate color buffer cheap to rewrite every animation frame.
type Renderer struct {
	config Config

	program     uint32
	uProjection int32
	uView       int32
	uLightDir   int32

	vao        uint32
	geomVBO    uint32
	colorVBO   uint32
	ebo        uint32
	indexCount int32
	colorLen   int

	wireframe bool
}

// New creates a renderer. Must be called after the OpenGL context
// exists.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config: cfg,
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	gpu := gl.GoStr(gl.GetString(gl.RENDERER))
	logger.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", gpu),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.MULTISAMPLE)
	gl.ClearColor(0.08, 0.09, 0.11, 1.0)

	program, err := shader.CompileProgram(vertexShaderSrc, fragmentShaderSrc)
	if err != nil {
		return nil, fmt.Errorf("mesh shader: %w", err)
	}
	r.program = program
	r.uProjection = shader.MustGetUniform(program, "uProjection")
	r.uView = shader.MustGetUniform(program, "uView")
	r.uLightDir = shader.MustGetUniform(program, "uLightDir")

	return r, nil
}

// Close releases GPU resources.
func (r *Renderer) Close() {
	r.deleteBuffers()
	if r.program != 0 {
		gl.DeleteProgram(r.program)
	}
}

func (r *Renderer) deleteBuffers() {
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
		r.vao = 0
	}
	if r.geomVBO != 0 {
		gl.DeleteBuffers(1, &r.geomVBO)
		r.geomVBO = 0
	}
	if r.colorVBO != 0 {
		gl.DeleteBuffers(1, &r.colorVBO)
		r.colorVBO = 0
	}
	if r.ebo != 0 {
		gl.DeleteBuffers(1, &r.ebo)
		r.ebo = 0
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
}

// Aspect returns the current width/height ratio.
func (r *Renderer) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

// Begin clears the frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Upload replaces the GPU mesh. colors is a flat RGB array with one
// entry per vertex.
func (r *Renderer) Upload(m *mesh.Mesh, colors []float32) error {
	if len(colors) != len(m.Vertices)*3 {
		return fmt.Errorf("renderer: %d color values for %d vertices", len(colors), len(m.Vertices))
	}

	r.deleteBuffers()

	if len(m.Vertices) == 0 || len(m.Triangles) == 0 {
		r.indexCount = 0
		r.colorLen = 0
		return nil
	}

	// interleave position and normal
	geom := make([]float32, 0, len(m.Vertices)*6)
	for _, v := range m.Vertices {
		geom = append(geom,
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z)
	}

	indices := make([]uint32, 0, len(m.Triangles)*3)
	for _, tri := range m.Triangles {
		indices = append(indices, tri[0], tri[1], tri[2])
	}
	r.indexCount = int32(len(indices))
	r.colorLen = len(colors)

	gl.GenVertexArrays(1, &r.vao)
	gl.BindVertexArray(r.vao)

	gl.GenBuffers(1, &r.geomVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.geomVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(geom)*4, unsafe.Pointer(&geom[0]), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 6*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 6*4, unsafe.Pointer(uintptr(3*4)))
	gl.EnableVertexAttribArray(1)

	// colors change every animation frame
	gl.GenBuffers(1, &r.colorVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.colorVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(colors)*4, unsafe.Pointer(&colors[0]), gl.DYNAMIC_DRAW)
	gl.VertexAttribPointer(2, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(2)

	gl.GenBuffers(1, &r.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)

	logger.Debug("mesh uploaded",
		zap.Int("vertices", len(m.Vertices)),
		zap.Int32("indices", r.indexCount),
	)
	return nil
}

// Recolor rewrites the color buffer in place, leaving geometry alone.
func (r *Renderer) Recolor(colors []float32) error {
	if r.colorVBO == 0 {
		return fmt.Errorf("renderer: no mesh uploaded")
	}
	if len(colors) != r.colorLen {
		return fmt.Errorf("renderer: %d color values, buffer holds %d", len(colors), r.colorLen)
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, r.colorVBO)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(colors)*4, unsafe.Pointer(&colors[0]))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

// SetWireframe toggles wireframe rendering.
func (r *Renderer) SetWireframe(on bool) {
	r.wireframe = on
}

// Draw renders the uploaded mesh with the given camera matrices. The
// light follows the camera.
func (r *Renderer) Draw(projection, view math.Mat4, lightDir math.Vec3) {
	if r.vao == 0 {
		return
	}

	if r.wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}

	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.uProjection, 1, false, &projection[0])
	gl.UniformMatrix4fv(r.uView, 1, false, &view[0])
	gl.Uniform3f(r.uLightDir, lightDir.X, lightDir.Y, lightDir.Z)

	gl.BindVertexArray(r.vao)
	gl.DrawElements(gl.TRIANGLES, r.indexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}
