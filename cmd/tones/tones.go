// Package tones is the tone detector diagnostic. It listens on the
// configured capture source, prints what the detector sees and suggests a
// threshold from the magnitudes measured.
package tones

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xenogenesi/jcblock/internal/pkg/cmdutil"
	"github.com/xenogenesi/jcblock/internal/pkg/config"
	"github.com/xenogenesi/jcblock/internal/pkg/constants"
	"github.com/xenogenesi/jcblock/internal/pkg/output"
	tonedet "github.com/xenogenesi/jcblock/internal/pkg/tones"
)

var TonesCmd = &cobra.Command{
	Use:   "tones",
	Short: "Test the authorization tone detector",
	Long: `Run the tone detector against the capture device or a recording and
report every detected key press. The magnitudes seen are summarized so the
threshold can be tuned for the microphone in use.`,
	Example: `  jcblock tones --duration 30s
  jcblock tones --file press.wav --verbose`,
	RunE: runTones,
}

var (
	duration   time.Duration
	verbose    bool
	jsonOutput bool
)

func init() {
	TonesCmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "how much audio to analyze")
	TonesCmd.Flags().String("file", "", "analyze a WAV or raw S16LE recording instead of capturing")
	TonesCmd.Flags().String("device", "", "capture device (default from tones.device)")
	TonesCmd.Flags().String("policy", "", "detection policy: combined, continuous, beep or averaged")
	TonesCmd.Flags().Float64("threshold", 0, "magnitude threshold (default from tones.threshold)")
	TonesCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the magnitudes of every block")
	TonesCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report in JSON format")
}

// Report is the outcome of one diagnostic run.
type Report struct {
	Presses     int             `json:"presses" yaml:"presses"`
	Policy      string          `json:"policy" yaml:"policy"`
	Threshold   float64         `json:"threshold" yaml:"threshold"`
	Duration    time.Duration   `json:"duration" yaml:"duration"`
	Calibration tonedet.Summary `json:"calibration" yaml:"calibration"`
}

func runTones(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	if cmd.Flags().Changed("file") {
		cfg.Tones.Source = config.SourceFile
		cfg.Tones.File, _ = cmd.Flags().GetString("file")
	}
	cfg.Tones.Device = cmdutil.StringFlag(cmd, "device", "tones.device")
	cfg.Tones.Policy = cmdutil.StringFlag(cmd, "policy", "tones.policy")
	cfg.Tones.Threshold = cmdutil.Float64Flag(cmd, "threshold", "tones.threshold")

	src, err := cfg.AudioOpener()()
	if err != nil {
		return err
	}
	d, err := tonedet.NewDetector(cfg.DetectorConfig(), src)
	if err != nil {
		src.Close()
		return err
	}
	defer d.Close()

	var progress io.Writer
	if !jsonOutput {
		progress = os.Stdout
	}
	report, err := Diagnose(cmd.Context(), d, duration, progress, verbose)
	if err != nil {
		return err
	}
	if jsonOutput {
		return output.Write(os.Stdout, report, output.FormatJSON)
	}
	Render(os.Stdout, report)
	return nil
}

// Diagnose polls d for the number of blocks that fit in dur, or until the
// source runs dry. Presses, and every block when verbose is set, are
// written to w when it is not nil.
func Diagnose(ctx context.Context, d *tonedet.Detector, dur time.Duration, w io.Writer, verbose bool) (Report, error) {
	report := Report{Policy: d.Policy.Name(), Threshold: d.Threshold}
	blocks := int(dur.Seconds() * constants.SampleRate / float64(d.BlockSize()))
	blockDur := time.Duration(float64(d.BlockSize()) / constants.SampleRate * float64(time.Second))

	var rec tonedet.Recorder
	d.Reset()
	for i := 0; i < blocks; i++ {
		found, err := d.Poll(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				break
			}
			return report, err
		}
		lo, hi := d.Last()
		rec.Add(lo, hi)
		at := time.Duration(i+1) * blockDur
		if verbose && w != nil {
			fmt.Fprintf(w, "%8s  %4.0f Hz %7.3f %s  %4.0f Hz %7.3f %s\n", at.Round(time.Millisecond),
				d.Low.TargetHz, lo.Magnitude, mark(lo.Detected),
				d.High.TargetHz, hi.Magnitude, mark(hi.Detected))
		}
		if found {
			report.Presses++
			if w != nil {
				fmt.Fprintf(w, "%s at %s\n", output.AcceptStyle.Render("KEY PRESS"), at.Round(time.Millisecond))
			}
		}
	}
	report.Calibration = rec.Summarize()
	report.Duration = time.Duration(report.Calibration.Blocks) * blockDur
	return report, nil
}

func mark(detected bool) string {
	if detected {
		return "*"
	}
	return " "
}

// Render prints the report summary.
func Render(w io.Writer, r Report) {
	c := r.Calibration
	fmt.Fprintf(w, "\n%s policy, threshold %.3f, %d blocks (%s)\n", r.Policy, r.Threshold, c.Blocks, r.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, output.Table(
		[]string{"TONE", "MEAN", "PEAK"},
		[][]string{
			{"low", fmt.Sprintf("%.3f", c.LowMean), fmt.Sprintf("%.3f", c.LowMax)},
			{"high", fmt.Sprintf("%.3f", c.HighMean), fmt.Sprintf("%.3f", c.HighMax)},
		}))
	style := output.NeutralStyle
	if r.Presses > 0 {
		style = output.AcceptStyle
	}
	fmt.Fprintf(w, "%s  suggested threshold %.3f\n", style.Render(fmt.Sprintf("%d key press(es)", r.Presses)), c.Suggested)
}
