package renderer

import (
	"io/fs"

	"github.com/cockroachdb/errors"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// ShaderSource returns compiled shader bytecode by filename.
type ShaderSource interface {
	ReadShader(name string) ([]byte, error)
}

// FSShaders reads shader binaries from a filesystem, usually os.DirFS of the
// configured shader directory.
type FSShaders struct {
	FS fs.FS
}

func (s FSShaders) ReadShader(name string) ([]byte, error) {
	return fs.ReadFile(s.FS, name)
}

// bytesToBytecode reinterprets little-endian SPIR-V bytes as 32-bit words.
func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("spir-v size %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	if byteCode[0] != spirvMagic {
		return nil, errors.Newf("bad spir-v magic 0x%08x", byteCode[0])
	}
	return byteCode, nil
}

func loadShaderCode(source ShaderSource, name string) ([]uint32, error) {
	raw, err := source.ReadShader(name)
	if err != nil {
		return nil, stageError(err, ErrShaderLoad, "read "+name)
	}
	code, err := bytesToBytecode(raw)
	if err != nil {
		return nil, stageError(err, ErrShaderLoad, name)
	}
	return code, nil
}
