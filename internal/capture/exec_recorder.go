package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const outputPlaceholder = "{output}"

// DefaultCommand returns the capture command for the running platform. Every
// platform records 16 kHz mono WAV so the backend sees one encoding.
func DefaultCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "sox -q -d -r 16000 -c 1 -b 16 " + outputPlaceholder
	case "windows":
		return "ffmpeg -hide_banner -loglevel error -f dshow -i audio=default -ac 1 -ar 16000 -y " + outputPlaceholder
	default:
		return "arecord -q -f S16_LE -r 16000 -c 1 -t wav " + outputPlaceholder
	}
}

// ExecOptions configures ExecRecorder.
type ExecOptions struct {
	Command     string
	Dir         string
	StopTimeout time.Duration
}

// ExecRecorder records by running an external capture program until interrupted.
type ExecRecorder struct {
	opts   ExecOptions
	cmd    *exec.Cmd
	path   string
	stderr bytes.Buffer
	done   chan error
}

// NewExecFactory returns a RecorderFactory producing a new ExecRecorder per call.
func NewExecFactory(opts ExecOptions) RecorderFactory {
	if strings.TrimSpace(opts.Command) == "" {
		opts.Command = DefaultCommand()
	}
	if opts.Dir == "" {
		opts.Dir = os.TempDir()
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 3 * time.Second
	}
	return func() Recorder {
		return &ExecRecorder{opts: opts}
	}
}

// Start launches the capture program writing into a timestamped file.
func (r *ExecRecorder) Start(_ context.Context) (string, error) {
	if r.cmd != nil {
		return "", ErrDeviceBusy
	}
	if err := os.MkdirAll(r.opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create capture dir: %w", err)
	}

	r.path = filepath.Join(r.opts.Dir, fmt.Sprintf("recording-%d.wav", time.Now().UnixMilli()))
	args := strings.Fields(strings.ReplaceAll(r.opts.Command, outputPlaceholder, r.path))
	if len(args) == 0 {
		return "", errors.New("capture command is empty")
	}

	// The capture must outlive the request that started it, so no CommandContext.
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stderr = &r.stderr
	if err := cmd.Start(); err != nil {
		return "", err
	}

	r.cmd = cmd
	r.done = make(chan error, 1)
	go func() {
		r.done <- cmd.Wait()
	}()

	return "file://" + r.path, nil
}

// Stop interrupts the capture program and waits for it to flush the file.
func (r *ExecRecorder) Stop(ctx context.Context) (string, error) {
	if r.cmd == nil {
		return "", ErrNoActiveCapture
	}

	select {
	case err := <-r.done:
		// exited on its own before stop; a non-zero exit means the device failed
		if err != nil {
			return "", r.exitError(err)
		}
		return "file://" + r.path, nil
	default:
	}

	if err := r.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = r.cmd.Process.Kill()
	}

	timer := time.NewTimer(r.opts.StopTimeout)
	defer timer.Stop()

	select {
	case <-r.done:
	case <-timer.C:
		_ = r.cmd.Process.Kill()
		<-r.done
	case <-ctx.Done():
		_ = r.cmd.Process.Kill()
		<-r.done
		return "", ctx.Err()
	}

	return "file://" + r.path, nil
}

func (r *ExecRecorder) exitError(err error) error {
	msg := strings.TrimSpace(r.stderr.String())
	if strings.Contains(strings.ToLower(msg), "permission denied") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
	}
	if msg != "" {
		return fmt.Errorf("capture program failed: %s: %w", msg, err)
	}
	return fmt.Errorf("capture program failed: %w", err)
}
