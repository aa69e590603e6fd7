package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"aquascope/internal/cache"
	"aquascope/internal/config"
	"aquascope/internal/facts"
	"aquascope/internal/markup"
	"aquascope/internal/visibility"
)

var revealCmd = &cobra.Command{
	Use:   "reveal <export.html>",
	Short: "Show or hide a loan or move region in a rendered export",
	Long: `Reveal toggles the classes of one loan or move in an HTML export made by
"aquascope render". The export names its session; the tags of every fact
are read from the session index cached at render time.`,
	Args: cobra.ExactArgs(1),
	RunE: runReveal,
}

func init() {
	revealCmd.Flags().String("loan", "", "loan key to toggle")
	revealCmd.Flags().String("move", "", "move key to toggle")
	revealCmd.Flags().StringArray("class", nil, "extra class to add or remove; repeatable")
	revealCmd.Flags().Bool("hide", false, "hide instead of show")
	revealCmd.Flags().StringP("out", "o", "", "output file (default stdout, \"-\" for stdout, the input path to edit in place)")
}

type revealRequest struct {
	Namespace facts.Namespace
	Key       string
	Classes   []string
	Hide      bool
}

func readRevealRequest(cmd *cobra.Command) (revealRequest, error) {
	var req revealRequest
	loan, err := cmd.Flags().GetString("loan")
	if err != nil {
		return req, err
	}
	move, err := cmd.Flags().GetString("move")
	if err != nil {
		return req, err
	}
	switch {
	case loan != "" && move != "":
		return req, fmt.Errorf("--loan and --move are exclusive")
	case loan != "":
		req.Namespace, req.Key = facts.NamespaceLoan, loan
	case move != "":
		req.Namespace, req.Key = facts.NamespaceMove, move
	default:
		return req, fmt.Errorf("one of --loan or --move is required")
	}
	if req.Classes, err = cmd.Flags().GetStringArray("class"); err != nil {
		return req, err
	}
	if req.Hide, err = cmd.Flags().GetBool("hide"); err != nil {
		return req, err
	}
	return req, nil
}

func runReveal(cmd *cobra.Command, args []string) error {
	req, err := readRevealRequest(cmd)
	if err != nil {
		return err
	}
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	cfg := configFrom(cmd.Context())
	dc, err := openCache(cfg)
	if err != nil {
		return err
	}
	if dc == nil {
		return fmt.Errorf("reveal needs the session cache, which is disabled")
	}

	doc, err := revealFile(args[0], dc, cfg, req)
	if err != nil {
		return err
	}
	if out == "" || out == "-" {
		_, err = doc.WriteTo(cmd.OutOrStdout())
		return err
	}
	return writeFileAtomic(out, func(w io.Writer) error {
		_, err := doc.WriteTo(w)
		return err
	})
}

// revealFile applies req to the export at path.
func revealFile(path string, dc *cache.DiskCache, cfg config.Config, req revealRequest) (*markup.Document, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := markup.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	id := doc.Session()
	if id == "" {
		return nil, fmt.Errorf("%s: export carries no session id", path)
	}
	var payload cache.Payload
	ok, err := dc.Get(id, &payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: no cached index for session %s; render it again", path, id)
	}
	if _, _, known := payload.Facts.Tags(req.Namespace, req.Key); !known {
		return nil, fmt.Errorf("unknown %s %q", req.Namespace, req.Key)
	}

	ctl := visibility.NewController(payload.Facts, doc).WithRevealedClass(cfg.Classes.Revealed)
	key := req.Key
	if req.Hide {
		// экспорт не хранит состояние: показ и скрытие снимают те же классы
		ctl.Show(req.Namespace, &key, req.Classes...)
		ctl.Hide(req.Namespace, &key, req.Classes...)
		return doc, nil
	}
	ctl.Show(req.Namespace, &key, req.Classes...)
	return doc, nil
}

func writeFileAtomic(path string, fn func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".aquascope-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = fn(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
