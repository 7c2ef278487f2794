package loaders

import (
	"fmt"
	"os"
)

const spirvMagic uint32 = 0x07230203

/** @brief Reads a SPIR-V binary into 32-bit words. */
func LoadSPIRV(path string) ([]uint32, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("%s: SPIR-V size %d is not a multiple of 4", path, len(buf))
	}
	code := bytesToBytecode(buf)
	if code[0] != spirvMagic {
		return nil, fmt.Errorf("%s: bad SPIR-V magic %#08x", path, code[0])
	}
	return code, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
