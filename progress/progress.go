// Package progress provides ProgressTracker implementations for uploads.
//
// Lines writes one human-readable line per uploaded part, the abort outcome
// and a final line on success; Bar renders a byte progress bar on a terminal.
package progress

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/uptypes"
)

// Lines reports progress as plain text lines.
type Lines struct {
	w     io.Writer
	parts int
}

// NewLines creates a tracker that writes to w.
func NewLines(w io.Writer) *Lines {
	return &Lines{w: w}
}

// PartUploaded writes "Uploaded part N".
func (l *Lines) PartUploaded(part uptypes.PartRecord, _, _ int64) {
	l.parts++
	fmt.Fprintf(l.w, "Uploaded part %d\n", part.PartNumber)
}

// Complete writes the final success line.
func (l *Lines) Complete(result *uptypes.UploadResult) {
	fmt.Fprintf(l.w, "File uploaded successfully to '%s/%s'\n", result.Bucket, result.Key)
}

// Aborted writes the outcome of the abort.
func (l *Lines) Aborted(uploadID string, err error) {
	if err != nil {
		fmt.Fprintf(l.w, "Failed to abort multipart upload %s: %v\n", uploadID, err)
		return
	}
	fmt.Fprintln(l.w, "Aborted multipart upload.")
}

// Error writes how far the upload got. The error itself is left to the caller.
func (l *Lines) Error(_ error) {
	fmt.Fprintf(l.w, "Upload stopped after %d part(s)\n", l.parts)
}

var barOptions = []progressbar.Option{
	progressbar.OptionShowBytes(true),
	progressbar.OptionSetElapsedTime(true),
	progressbar.OptionSetPredictTime(true),
	progressbar.OptionShowElapsedTimeOnFinish(),
	progressbar.OptionShowDescriptionAtLineEnd(),
	progressbar.OptionSetTheme(progressbar.Theme{
		Saucer:        "=",
		SaucerHead:    ">",
		SaucerPadding: " ",
		BarStart:      "[",
		BarEnd:        "]",
	}),
}

// Bar renders a byte progress bar. The bar is created on the first part,
// once the total size is known; a total of -1 renders a spinner.
type Bar struct {
	w           io.Writer
	out         io.Writer
	description string
	bar         *progressbar.ProgressBar
}

// NewBar creates a tracker that draws on w and writes the final success line
// to out.
func NewBar(w, out io.Writer, description string) *Bar {
	return &Bar{
		w:           w,
		out:         out,
		description: description,
	}
}

// PartUploaded advances the bar to the bytes sent so far.
func (b *Bar) PartUploaded(part uptypes.PartRecord, bytesTransferred, totalBytes int64) {
	if b.bar == nil {
		opts := make([]progressbar.Option, len(barOptions), len(barOptions)+2)
		copy(opts, barOptions)
		opts = append(opts,
			progressbar.OptionSetWriter(b.w),
			progressbar.OptionSetDescription(b.description),
		)
		b.bar = progressbar.NewOptions64(totalBytes, opts...)
	}
	b.bar.Describe(fmt.Sprintf("%s (part %d)", b.description, part.PartNumber))
	_ = b.bar.Set64(bytesTransferred)
}

// Complete finishes the bar and writes the success line.
func (b *Bar) Complete(result *uptypes.UploadResult) {
	if b.bar != nil {
		_ = b.bar.Finish()
		fmt.Fprintln(b.w)
	}
	fmt.Fprintf(b.out, "File uploaded successfully to '%s/%s'\n", result.Bucket, result.Key)
}

// Aborted stops the bar and writes the outcome of the abort to out.
func (b *Bar) Aborted(uploadID string, err error) {
	b.stop()
	if err != nil {
		fmt.Fprintf(b.out, "Failed to abort multipart upload %s: %v\n", uploadID, err)
		return
	}
	fmt.Fprintln(b.out, "Aborted multipart upload.")
}

// Error leaves the bar at its current position.
func (b *Bar) Error(_ error) {
	b.stop()
}

func (b *Bar) stop() {
	if b.bar != nil {
		_ = b.bar.Exit()
		fmt.Fprintln(b.w)
		b.bar = nil
	}
}

var (
	_ uptypes.ProgressTracker = (*Lines)(nil)
	_ uptypes.ProgressTracker = (*Bar)(nil)
)
