package cli

import (
	"fmt"
	"io"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/navcore/config"
	"go.viam.com/navcore/logging"
	"go.viam.com/navcore/transform"
	"go.viam.com/navcore/utils"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold yellow "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, "\x1b[1;33mWarning:\x1b[0m "+format+"\n", a...)
}

// loadConfig reads the config named by the global flag and the logger it asks for. Logs go to the
// app's error writer; the config's logger patterns apply to it and its subloggers.
func loadConfig(c *cli.Context) (*config.Config, logging.Logger, error) {
	cfg, err := config.Read(c.String(configFlag))
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewBlankLogger("navcore")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	logger.SetLevel(logging.INFO)
	if c.Bool(debugFlag) || cfg.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	if c.Bool(debugFlag) {
		// Debug traces of the command itself are kept even where the config quiets a logger.
		c.Context = logging.EnableDebugMode(c.Context, "")
	}
	logging.RegisterLogger("navcore", logger)
	if err := logging.UpdateLoggerConfig(cfg.Log); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// pointsFromFlag groups the values of a repeated X,Y,Z flag into points.
func pointsFromFlag(values []float64) ([]r3.Vector, error) {
	if len(values)%3 != 0 {
		return nil, errors.Errorf("--%s takes points of the form X,Y,Z, got %d values", pointFlag, len(values))
	}
	points := make([]r3.Vector, 0, len(values)/3)
	for i := 0; i < len(values); i += 3 {
		points = append(points, r3.Vector{X: values[i], Y: values[i+1], Z: values[i+2]})
	}
	return points, nil
}

func formatPoint(p r3.Vector) string {
	return fmt.Sprintf("X:%.3f, Y:%.3f, Z:%.3f", p.X, p.Y, p.Z)
}

// transformTable renders a transform with its rotation as degrees around an axis and as a
// quaternion.
func transformTable(title string, tf transform.Transform) string {
	aa := tf.Pose().Orientation().AxisAngles()
	q := tf.Rotation()
	tw := table.NewWriter()
	tw.SetTitle(title)
	tw.AppendRows([]table.Row{
		{"Translation", formatPoint(tf.Translation())},
		{"Orientation", fmt.Sprintf("TH:%.4f, X:%.4f, Y:%.4f, Z:%.4f", utils.RadToDeg(aa.Theta), aa.RX, aa.RY, aa.RZ)},
		{"Quaternion", fmt.Sprintf("W:%.6f, X:%.6f, Y:%.6f, Z:%.6f", q.Real, q.Imag, q.Jmag, q.Kmag)},
		{"Error", fmt.Sprintf("%.6g", tf.ErrorBound())},
		{"Valid", tf.Window().String()},
	})
	return tw.Render()
}
