package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// watchPair calls onChange after the source or the analysis of p changes,
// until ctx is done. Errors of onChange are reported and watching goes on.
func watchPair(ctx context.Context, p docPair, onChange func() error, errOut io.Writer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	targets := make(map[string]bool, 2)
	dirs := make(map[string]bool, 2)
	for _, path := range []string{p.Source, p.Analysis} {
		abs := filepath.Clean(absOrSame(path))
		targets[abs] = true
		// следим за каталогом: редакторы пишут через rename
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(errOut, "%s %v\n", color.YellowString("watch:"), err)
		case <-timer.C:
			if err := onChange(); err != nil {
				fmt.Fprintf(errOut, "%s %v\n", color.RedString("error:"), err)
			}
		}
	}
}
