//go:build !debug

package renderer

const validationDefault = false
