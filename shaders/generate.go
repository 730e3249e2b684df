// Package shaders holds the GLSL sources for the triangle pipeline. The
// compiled vert.spv and frag.spv are read from this directory at runtime.
package shaders

//go:generate glslc shader.vert -o vert.spv
//go:generate glslc shader.frag -o frag.spv
