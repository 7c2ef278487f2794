package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/metadata"
)

const shaderExtension = ".toml"

type AssetInfo struct {
	Path       string
	LastLoaded time.Time
}

/**
 * @brief Indexes the shader descriptions found under a directory and loads them on
 * demand. Loaded shaders are kept so that a name always maps to the same object.
 */
type AssetManager struct {
	assets  map[string]AssetInfo
	shaders map[string]*metadata.Shader
	loader  Loader

	mutex sync.RWMutex
}

func NewAssetManager(loader Loader) *AssetManager {
	return &AssetManager{
		assets:  make(map[string]AssetInfo),
		shaders: make(map[string]*metadata.Shader),
		loader:  loader,
	}
}

func (am *AssetManager) Initialize(assetsDir string) error {
	err := filepath.Walk(assetsDir, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			am.handleFile(walkPath)
		}
		return nil
	})
	if err != nil {
		return err
	}
	core.LogInfo("%d shader descriptions found in %s", len(am.assets), assetsDir)
	return nil
}

// Register a description file under its base name
func (am *AssetManager) handleFile(path string) {
	if filepath.Ext(path) != shaderExtension {
		return
	}
	name := strings.TrimSuffix(filepath.Base(path), shaderExtension)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	if prev, ok := am.assets[name]; ok {
		core.LogWarn("shader '%s' found in %s and %s, using the latter", name, prev.Path, path)
	}
	am.assets[name] = AssetInfo{Path: path}
}

/** @brief Names of every indexed shader, sorted. */
func (am *AssetManager) ShaderNames() []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	names := make([]string, 0, len(am.assets))
	for n := range am.assets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (am *AssetManager) LoadShader(name string) (*metadata.Shader, error) {
	am.mutex.RLock()
	shader, loaded := am.shaders[name]
	asset, exists := am.assets[name]
	am.mutex.RUnlock()
	if loaded {
		return shader, nil
	}
	if !exists {
		return nil, fmt.Errorf("asset not found: %s", name)
	}

	shader, err := am.loader.Load(asset.Path)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	if s, ok := am.shaders[name]; ok {
		return s, nil
	}
	asset.LastLoaded = time.Now()
	am.assets[name] = asset
	am.shaders[name] = shader
	return shader, nil
}

/** @brief Loads every indexed shader in name order. */
func (am *AssetManager) LoadAll() ([]*metadata.Shader, error) {
	names := am.ShaderNames()
	shaders := make([]*metadata.Shader, 0, len(names))
	for _, n := range names {
		s, err := am.LoadShader(n)
		if err != nil {
			return nil, err
		}
		shaders = append(shaders, s)
	}
	return shaders, nil
}
