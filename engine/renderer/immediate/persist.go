package immediate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spaghettifunk/immediate/engine/core"
)

const (
	pipelineCacheHeaderSize    = 32
	pipelineCacheHeaderVersion = 1
)

/** @brief The fixed header every driver writes at the start of pipeline cache data. */
type pipelineCacheHeader struct {
	Length   uint32
	Version  uint32
	VendorID uint32
	DeviceID uint32
	UUID     uuid.UUID
}

func parsePipelineCacheHeader(data []byte) (pipelineCacheHeader, error) {
	var h pipelineCacheHeader
	if len(data) < pipelineCacheHeaderSize {
		return h, fmt.Errorf("%w: %d bytes is shorter than the header", core.ErrInvalidPipelineCache, len(data))
	}
	h.Length = binary.LittleEndian.Uint32(data[0:4])
	h.Version = binary.LittleEndian.Uint32(data[4:8])
	h.VendorID = binary.LittleEndian.Uint32(data[8:12])
	h.DeviceID = binary.LittleEndian.Uint32(data[12:16])
	id, err := uuid.FromBytes(data[16:32])
	if err != nil {
		return h, fmt.Errorf("%w: %v", core.ErrInvalidPipelineCache, err)
	}
	h.UUID = id
	if h.Length < pipelineCacheHeaderSize || uint64(h.Length) > uint64(len(data)) {
		return h, fmt.Errorf("%w: header length %d", core.ErrInvalidPipelineCache, h.Length)
	}
	if h.Version != pipelineCacheHeaderVersion {
		return h, fmt.Errorf("%w: header version %d", core.ErrInvalidPipelineCache, h.Version)
	}
	return h, nil
}

/** @brief Checks that a pipeline cache blob was produced by the same device and driver. */
func ValidatePipelineCacheData(data []byte, identity DeviceIdentity) error {
	h, err := parsePipelineCacheHeader(data)
	if err != nil {
		return err
	}
	if h.VendorID != identity.VendorID || h.DeviceID != identity.DeviceID {
		return fmt.Errorf("%w: produced by device %04x:%04x, running on %04x:%04x", core.ErrInvalidPipelineCache,
			h.VendorID, h.DeviceID, identity.VendorID, identity.DeviceID)
	}
	if want := uuid.UUID(identity.PipelineCacheUUID); h.UUID != want {
		return fmt.Errorf("%w: cache uuid %s does not match driver %s", core.ErrInvalidPipelineCache, h.UUID, want)
	}
	return nil
}

/**
 * @brief Reads the pipeline cache blob. A missing, unreadable or foreign file gives
 * nil, which means starting with an empty cache.
 */
func LoadPipelineCacheData(path string, identity DeviceIdentity) []byte {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			core.LogDebug("no pipeline cache at '%s', starting empty", path)
		} else {
			core.LogWarn("failed to read pipeline cache '%s': %v", path, err)
		}
		return nil
	}
	if err := ValidatePipelineCacheData(data, identity); err != nil {
		core.LogWarn("ignoring pipeline cache '%s': %v", path, err)
		return nil
	}
	core.LogInfo("loaded pipeline cache '%s' (%d bytes)", path, len(data))
	return data
}

/** @brief Writes the blob through a temporary file so a crash never leaves a torn cache behind. */
func SavePipelineCacheData(path string, data []byte) error {
	if path == "" || len(data) == 0 {
		return nil
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

/** @brief Builds a header for identity. Only used to produce test data and by drivers without their own cache format. */
func EncodePipelineCacheHeader(identity DeviceIdentity, payload []byte) []byte {
	out := make([]byte, pipelineCacheHeaderSize, pipelineCacheHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], pipelineCacheHeaderSize)
	binary.LittleEndian.PutUint32(out[4:8], pipelineCacheHeaderVersion)
	binary.LittleEndian.PutUint32(out[8:12], identity.VendorID)
	binary.LittleEndian.PutUint32(out[12:16], identity.DeviceID)
	copy(out[16:32], identity.PipelineCacheUUID[:])
	return append(out, payload...)
}

/** @brief The identity recorded in a pipeline cache file. */
type PipelineCacheInfo struct {
	Identity DeviceIdentity
	// Bytes of driver data after the header.
	PayloadSize int
}

func InspectPipelineCache(path string) (PipelineCacheInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PipelineCacheInfo{}, err
	}
	h, err := parsePipelineCacheHeader(data)
	if err != nil {
		return PipelineCacheInfo{}, err
	}
	return PipelineCacheInfo{
		Identity: DeviceIdentity{
			VendorID:          h.VendorID,
			DeviceID:          h.DeviceID,
			PipelineCacheUUID: [16]byte(h.UUID),
		},
		PayloadSize: len(data) - int(h.Length),
	}, nil
}
