/*
Command line companion of the immediate renderer. It validates a
configuration file and inspects pipeline cache files written by a
running application.
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spaghettifunk/immediate/engine/core"
	"github.com/spaghettifunk/immediate/engine/renderer/immediate"
)

func main() {
	configPath := flag.String("config", "", "configuration file to validate")
	inspect := flag.String("inspect", "", "pipeline cache file to inspect, defaults to the configured one")
	flag.Parse()

	cfg := core.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = core.LoadConfig(*configPath); err != nil {
			core.LogFatal("invalid configuration: %v", err)
		}
	}
	if err := cfg.Apply(); err != nil {
		core.LogFatal("invalid configuration: %v", err)
	}

	settings := immediate.SettingsFromConfig(cfg)
	fmt.Printf("virtual frames:   %d\n", settings.VirtualFrames)
	fmt.Printf("frame size:       %d bytes (%d total)\n", settings.FrameSize, settings.FrameSize*uint64(settings.VirtualFrames))
	fmt.Printf("descriptor pools: %d per frame, %d sets per layout\n", settings.MaxDescriptorPoolsPerFrame, settings.DescriptorSetsPerPool)

	path := *inspect
	if path == "" {
		path = settings.PipelineCachePath
	}
	info, err := immediate.InspectPipelineCache(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("pipeline cache:   none at %s\n", path)
			return
		}
		core.LogFatal("pipeline cache %s: %v", path, err)
	}
	fmt.Printf("pipeline cache:   %s\n", path)
	fmt.Printf("  device:         %04x:%04x\n", info.Identity.VendorID, info.Identity.DeviceID)
	fmt.Printf("  cache uuid:     %s\n", uuid.UUID(info.Identity.PipelineCacheUUID))
	fmt.Printf("  driver data:    %d bytes\n", info.PayloadSize)
}
