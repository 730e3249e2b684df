//go:build debug

package renderer

// Built with -tags debug: validation layers and the diagnostic messenger are on by default.
const validationDefault = true
