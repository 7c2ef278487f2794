package assets

import "github.com/spaghettifunk/immediate/engine/renderer/metadata"

type Loader interface {
	Load(path string) (*metadata.Shader, error)
}
