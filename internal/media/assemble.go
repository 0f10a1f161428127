package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"neomentor/internal/domain"
)

// Assemble joins combined segments in index order into outPath. A single
// segment is copied; several are joined with the concat demuxer using a
// list file written to listPath.
func (t *Toolkit) Assemble(ctx context.Context, segments []domain.CombinedSegment, listPath, outPath string) (domain.FinalArtifact, error) {
	if len(segments) == 0 {
		return domain.FinalArtifact{}, &domain.AssemblyError{Reason: "no valid segments", Err: domain.ErrNoValidSegments}
	}
	ordered := append([]domain.CombinedSegment(nil), segments...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	if len(ordered) == 1 {
		if err := copyFile(ordered[0].Path, outPath); err != nil {
			return domain.FinalArtifact{}, &domain.AssemblyError{Reason: "copy single segment", Err: err}
		}
		t.logger.Info().Str("path", outPath).Msg("media: single segment promoted to final output")
		return domain.FinalArtifact{Path: outPath, SegmentsMerged: 1}, nil
	}

	paths := make([]string, 0, len(ordered))
	for _, seg := range ordered {
		paths = append(paths, seg.Path)
	}
	if err := t.Concat(ctx, paths, listPath, outPath); err != nil {
		return domain.FinalArtifact{}, &domain.AssemblyError{
			Reason: "concatenation failed",
			Err:    fmt.Errorf("%w: %w", domain.ErrConcatenation, err),
		}
	}
	t.logger.Info().Int("segments", len(paths)).Str("path", outPath).Msg("media: segments concatenated")
	return domain.FinalArtifact{Path: outPath, SegmentsMerged: len(paths)}, nil
}

// Concat joins clips that share codec and container without re-encoding.
func (t *Toolkit) Concat(ctx context.Context, paths []string, listPath, outPath string) error {
	list, err := concatList(paths)
	if err != nil {
		return err
	}
	if err := os.WriteFile(listPath, []byte(list), 0o644); err != nil {
		return fmt.Errorf("media: write concat list: %w", err)
	}
	if _, err := t.exec.Run(ctx, t.ffmpeg, "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", outPath, "-y"); err != nil {
		return fmt.Errorf("media: concat: %w", err)
	}
	if !fileExists(outPath) {
		return fmt.Errorf("media: concat: output %s not written", outPath)
	}
	return nil
}

func concatList(paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("media: resolve %q: %w", p, err)
		}
		// concat demuxer quoting: close the quote, escape, reopen.
		b.WriteString("file '" + strings.ReplaceAll(abs, "'", `'\''`) + "'\n")
	}
	return b.String(), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("media: open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("media: create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("media: copy to %s: %w", dst, err)
	}
	return out.Close()
}
