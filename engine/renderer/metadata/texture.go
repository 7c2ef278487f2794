package metadata

/** @brief The default texture name. */
const DEFAULT_TEXTURE_NAME string = "default"

/**
 * @brief Represents a texture that is ready to be sampled.
 */
type Texture struct {
	Name    string
	Sampler SamplerHandle
	View    ImageViewHandle
}

func (t *Texture) Valid() bool {
	return t != nil && t.Sampler != 0 && t.View != 0
}
