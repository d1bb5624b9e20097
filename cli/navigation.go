package cli

import (
	"context"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/navcore/config"
	"go.viam.com/navcore/logging"
	"go.viam.com/navcore/registration"
)

type namedPoint struct {
	name  string
	point config.Translation
}

// RegisterAction is the corresponding action for 'register'.
func RegisterAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	engineCfg := cfg.Registration.EngineConfig()
	if c.Bool(noSearchFlag) {
		engineCfg.PermutationSearch = false
	}
	engine, err := register(c.Context, cfg, engineCfg, logger)
	if err != nil {
		return err
	}

	res, err := engine.TransformFromTrackerToImage()
	if err != nil {
		return err
	}
	rms, err := engine.RMSError()
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", transformTable(fmt.Sprintf("%s to %s", res.From, res.To), res.Transform))
	printf(c.App.Writer, "RMS error: %.6g", rms)

	if len(cfg.Targets) > 0 {
		out, err := treTable(cfg.ImageLandmarks(), rms, targetPoints(cfg))
		if err != nil {
			return err
		}
		printf(c.App.Writer, "%s", out)
	}

	tree, systems, err := cfg.BuildTree("navigation", logger)
	if err != nil {
		return err
	}
	tracker, image := systems[c.String(trackerFlag)], systems[c.String(imageFlag)]
	if tracker == nil || image == nil {
		warningf(c.App.ErrWriter, "coordinate systems %q and %q are not both configured; not installing the registration",
			c.String(trackerFlag), c.String(imageFlag))
		return nil
	}
	if err := engine.InstallTrackerToImage(tracker, image); err != nil {
		return err
	}
	printf(c.App.Writer, "%s", tree.String())
	return nil
}

// TREAction is the corresponding action for 'tre'.
func TREAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	targets := targetPoints(cfg)
	points, err := pointsFromFlag(c.Float64Slice(pointFlag))
	if err != nil {
		return err
	}
	for _, p := range points {
		targets = append(targets, namedPoint{name: "point", point: config.Translation{X: p.X, Y: p.Y, Z: p.Z}})
	}
	if len(targets) == 0 {
		return errors.Errorf("no targets configured; add targets to the config or pass --%s", pointFlag)
	}

	rms := c.Float64(rmsFlag)
	if !c.IsSet(rmsFlag) {
		engine, err := register(c.Context, cfg, cfg.Registration.EngineConfig(), logger)
		if err != nil {
			return err
		}
		if rms, err = engine.RMSError(); err != nil {
			return err
		}
	}
	out, err := treTable(cfg.ImageLandmarks(), rms, targets)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return nil
}

// TreeAction is the corresponding action for 'tree'.
func TreeAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := printTree(c, cfg, logger); err != nil {
		return err
	}
	if !c.Bool(watchFlag) {
		return nil
	}

	w, err := config.NewWatcher(c.Context, c.String(configFlag), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			logger.Warnw("failed to close config watcher", "error", err)
		}
	}()
	for {
		select {
		case <-c.Context.Done():
			return nil
		case cfg := <-w.Config():
			if err := printTree(c, cfg, logger); err != nil {
				warningf(c.App.ErrWriter, "%v", err)
			}
		}
	}
}

func printTree(c *cli.Context, cfg *config.Config, logger logging.Logger) error {
	tree, systems, err := cfg.BuildTree("navigation", logger)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", tree.String())

	from, to := c.String(fromFlag), c.String(toFlag)
	if from == "" && to == "" {
		return nil
	}
	src, ok := systems[from]
	if !ok {
		return errors.Errorf("unknown coordinate system %q", from)
	}
	dst, ok := systems[to]
	if !ok {
		return errors.Errorf("unknown coordinate system %q", to)
	}
	tf, err := src.ComputeTransformTo(dst)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", transformTable(fmt.Sprintf("%s to %s", from, to), tf))
	return nil
}

// register feeds the configured landmark pairs to a new engine and computes the tracker to image
// transform.
func register(
	ctx context.Context,
	cfg *config.Config,
	engineCfg registration.Config,
	logger logging.Logger,
) (*registration.Engine, error) {
	engineLogger := logger.Sublogger("registration")
	if err := logging.UpdateLoggerConfig(cfg.Log); err != nil {
		return nil, err
	}
	engine, err := registration.NewEngine(engineCfg, engineLogger)
	if err != nil {
		return nil, err
	}
	for i, pair := range cfg.Landmarks {
		if err := engine.AddImageLandmark(pair.Image.Vector()); err != nil {
			return nil, errors.Wrapf(err, "landmark %d", i)
		}
		if err := engine.AddTrackerLandmark(pair.Tracker.Vector()); err != nil {
			return nil, errors.Wrapf(err, "landmark %d", i)
		}
	}
	if err := engine.ComputeTransform(ctx); err != nil {
		return nil, err
	}
	return engine, nil
}

func targetPoints(cfg *config.Config) []namedPoint {
	points := make([]namedPoint, 0, len(cfg.Targets))
	for _, target := range cfg.Targets {
		points = append(points, namedPoint{name: target.Name, point: target.Point})
	}
	return points
}

func treTable(landmarks []r3.Vector, rms float64, targets []namedPoint) (string, error) {
	tw := table.NewWriter()
	tw.SetTitle(fmt.Sprintf("Target registration error (landmark RMS %.6g)", rms))
	tw.AppendHeader(table.Row{"Target", "Point", "TRE"})
	for _, target := range targets {
		tre, err := registration.EstimateTargetRegistrationError(landmarks, rms, target.point.Vector())
		if err != nil {
			return "", errors.Wrapf(err, "target %q", target.name)
		}
		tw.AppendRow(table.Row{target.name, formatPoint(target.point.Vector()), fmt.Sprintf("%.6g", tre)})
	}
	return tw.Render(), nil
}
