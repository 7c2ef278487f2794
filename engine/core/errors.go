package core

import (
	"errors"
)

var (
	ErrOutOfBufferSpace        = errors.New("frame allocator out of buffer space")
	ErrZeroSizeAllocation      = errors.New("zero sized allocation")
	ErrInvalidFrameIndex       = errors.New("virtual frame index out of range")
	ErrDescriptorPoolExhausted = errors.New("descriptor pool exhausted")
	ErrPipelineCompilation     = errors.New("pipeline compilation failed")
	ErrPipelineUnavailable     = errors.New("pipeline previously failed to compile")
	ErrContextFinalized        = errors.New("context already finalized")
	ErrContextNotFinalized     = errors.New("context not finalized")
	ErrContextNotRecording     = errors.New("no frame in progress, call Begin first")
	ErrNoShader                = errors.New("no shader registered")
	ErrUnknownUniform          = errors.New("unknown uniform")
	ErrUnknownUniformBlock     = errors.New("unknown uniform block")
	ErrUniformTooLarge         = errors.New("uniform value larger than member range")
	ErrUnsupportedValue        = errors.New("unsupported uniform value type")
	ErrEmptyStack              = errors.New("uniform block stack is empty")
	ErrMissingTexture          = errors.New("no texture bound")
	ErrInvalidPipelineCache    = errors.New("invalid pipeline cache data")
)
