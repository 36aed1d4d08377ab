package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/assets"
	"github.com/bloeys/spot/camera"
	"github.com/bloeys/spot/config"
	"github.com/bloeys/spot/engine"
	"github.com/bloeys/spot/logging"
	"github.com/bloeys/spot/renderer/rend3dgl"
	"github.com/bloeys/spot/timing"
	"github.com/bloeys/spot/window"
	"github.com/spf13/cobra"
)

type runOptions struct {
	ConfigPath string
	Scene      string
	Model      string
	Frames     uint64
	VSync      bool
	CpuProfile string
	MemProfile string
}

func main() {

	opts := runOptions{}
	cmd := &cobra.Command{
		Use:           "spot",
		Short:         "Renders a demo scene with shadows, pbr and instanced grass",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(&opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a toml config file")
	flags.StringVarP(&opts.Scene, "scene", "s", "all", "demo scene to render: "+strings.Join(demoSceneNames(), ", "))
	flags.StringVarP(&opts.Model, "model", "m", "", "gltf or glb file to render instead of a demo scene")
	flags.Uint64Var(&opts.Frames, "frames", 0, "quit after this many frames, 0 runs until the window closes")
	flags.BoolVar(&opts.VSync, "vsync", true, "wait for vertical sync on present")
	flags.StringVar(&opts.CpuProfile, "cpuprofile", "", "write a cpu profile to this file")
	flags.StringVar(&opts.MemProfile, "memprofile", "", "write a heap profile to this file on exit")

	if err := cmd.Execute(); err != nil {
		logging.ErrLog.Fatalln(err)
	}
}

func run(opts *runOptions) error {

	cfg := config.Default()
	if opts.ConfigPath != "" {

		var err error
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return err
		}
	}

	desc, err := sceneDesc(opts)
	if err != nil {
		return err
	}

	//Init window
	err = window.Init()
	if err != nil {
		return fmt.Errorf("failed to init sdl: %w", err)
	}
	defer window.Quit()

	win, err := window.CreateOpenGLWindowCentered("spot", cfg.Width, cfg.Height, window.WindowFlags_RESIZABLE|window.WindowFlags_ALLOW_HIGHDPI)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer win.Destroy()

	window.SetVSync(opts.VSync)

	// High dpi displays have more pixels than the window size says
	cfg.Width, cfg.Height = win.DrawableSize()

	rend := rend3dgl.NewRend3DGL()
	eng, err := engine.New(rend, cfg)
	if err != nil {
		return err
	}
	defer eng.Destroy()

	sc, err := eng.CreateScene(desc)
	if err != nil {
		return err
	}
	defer eng.DestroyScene(sc)

	pos := gglm.NewVec3(0, 3, 9)
	fwd := gglm.NewVec3(0, -0.3, -1)
	up := gglm.NewVec3(0, 1, 0)
	cam := camera.NewPerspective(&pos, fwd.Normalize(), &up, 0.1, 200, 60*gglm.Deg2Rad, float32(cfg.Width)/float32(cfg.Height))

	var resizeErr error
	win.OnResize = func(width, height int32) {
		resizeErr = errors.Join(resizeErr, eng.Resize(width, height, cam))
	}

	if opts.CpuProfile != "" {

		pf, err := os.Create(opts.CpuProfile)
		if err == nil {
			defer pf.Close()
			pprof.StartCPUProfile(pf)
			defer pprof.StopCPUProfile()
		} else {
			logging.ErrLog.Printf("Creating cpu profile file failed. CPU profiling will not run. Err=%v\n", err)
		}
	}

	for win.PollEvents() {

		if resizeErr != nil {
			return resizeErr
		}

		timing.FrameStarted()
		if err := eng.RenderFrame(sc, cam, timing.DT()); err != nil {
			return err
		}

		rend.FrameEnd()
		win.Swap()

		if timing.FrameCount()%600 == 0 {
			logging.InfoLog.Printf("Frame=%d, FPS=%.1f, Stats=%+v\n", timing.FrameCount(), timing.FPS(), eng.Renderer.Stats)
		}

		if opts.Frames > 0 && eng.Frame() >= opts.Frames {
			break
		}
	}

	if opts.MemProfile != "" {
		writeHeapProfile(opts.MemProfile)
	}

	return nil
}

func writeHeapProfile(path string) {

	heapProfile, err := os.Create(path)
	if err != nil {
		logging.ErrLog.Printf("Creating heap profile file failed. Err=%v\n", err)
		return
	}
	defer heapProfile.Close()

	err = pprof.WriteHeapProfile(heapProfile)
	if err != nil {
		logging.ErrLog.Printf("Writing heap profile to '%s' failed. Err=%v\n", path, err)
	}
}

func sceneDesc(opts *runOptions) (*engine.SceneDesc, error) {

	if opts.Model != "" {
		return assets.LoadGLTF(opts.Model)
	}

	build, ok := demoScenes[opts.Scene]
	if !ok {
		return nil, fmt.Errorf("unknown demo scene '%s'. Available scenes: %s", opts.Scene, strings.Join(demoSceneNames(), ", "))
	}

	return build(), nil
}
