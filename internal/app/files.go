package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sqweek/dialog"

	"sumdoc/internal/editor"
	"sumdoc/internal/export"
	"sumdoc/internal/mathblock"
	"sumdoc/pkg/sumdoc"
)

const fileExt = "sumdoc"

func codecs() editor.Codecs {
	c := editor.DefaultCodecs()
	c[mathblock.Kind] = mathblock.Decode
	return c
}

func (a *App) newDocument() {
	a.pushUndoSnapshot()
	a.state.Reset(nil)
	a.meta = sumdoc.NewDocument("", "Untitled").Metadata
	a.filePath = ""
	a.password = ""
	a.afterLoad()
	a.status = "New summary"
}

func (a *App) afterLoad() {
	a.dropdown.Close()
	a.popover.Cancel()
	a.state.SetScroll(0)
	a.state.SetSelection(0, 0, editor.SourceSilent)
	a.pagesScroll = 0
	a.resetPages()
}

// Open loads path, asking for a password first when the file is sealed.
func (a *App) Open(path string) error {
	path = filepath.Clean(path)
	env, err := sumdoc.InspectEnvelope(path)
	if err != nil {
		return err
	}
	if env.Encrypted {
		a.askOpenPassword(path)
		return nil
	}
	return a.loadDocument(path, "")
}

func (a *App) openDocumentDialog() error {
	path, err := dialog.File().Filter("Summary documents", fileExt).Title("Open summary").Load()
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New("no file selected")
	}
	return a.Open(path)
}

func (a *App) loadDocument(path, password string) error {
	doc, err := sumdoc.LoadWithOptions(path, sumdoc.LoadOptions{Password: password})
	if err != nil {
		return err
	}
	if err := a.state.Load(doc, codecs()); err != nil {
		return fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	a.undoHistory = a.undoHistory[:0]
	a.redoHistory = a.redoHistory[:0]
	a.meta = doc.Metadata
	a.filePath = path
	a.password = password
	a.afterLoad()
	if pt := float64(doc.Metadata.FontSizePt); pt > 0 {
		a.setFontSize(pt)
	}
	a.log.Info("document opened", "path", path, "items", a.state.Length())
	a.status = "Opened " + filepath.Base(path)
	return nil
}

func (a *App) askOpenPassword(path string) {
	a.status = "Password required to open " + filepath.Base(path)
	a.dragSelecting = false
	a.prompt = &prompt{
		title:  "Password for " + filepath.Base(path),
		masked: true,
		submit: func(pw string) error {
			err := a.loadDocument(path, pw)
			if errors.Is(err, sumdoc.ErrInvalidPassword) || errors.Is(err, sumdoc.ErrPasswordRequired) {
				return errors.New("incorrect password, try again")
			}
			if err != nil {
				a.fail("Open", err)
			}
			return nil
		},
	}
}

// askSavePassword sets the password used to seal the file on save. An
// empty password saves the file unencrypted.
func (a *App) askSavePassword() {
	a.prompt = &prompt{
		title:  "Encryption password (empty to remove)",
		masked: true,
		submit: func(pw string) error {
			a.password = pw
			if pw == "" {
				a.status = "Encryption off"
			} else {
				a.status = "AES-256 encryption on for the next save"
			}
			return nil
		},
	}
}

func (a *App) saveDocument(saveAs bool) error {
	path := a.filePath
	if saveAs || path == "" {
		p, err := dialog.File().Filter("Summary documents", fileExt).Title("Save summary").Save()
		if err != nil {
			return err
		}
		path = p
	}
	if path == "" {
		return errors.New("no file selected")
	}
	if filepath.Ext(path) == "" {
		path += "." + fileExt
	}
	meta := a.meta
	meta.ModifiedUnix = time.Now().Unix()
	meta.FontSizePt = uint16(a.fontSizePt)
	opts := sumdoc.SaveOptions{
		Compression: true,
		Encryption:  sumdoc.EncryptionOptions{Enabled: a.password != "", Password: a.password},
	}
	if err := sumdoc.SaveWithOptions(path, a.state.ToFile(meta), opts); err != nil {
		return err
	}
	a.meta = meta
	a.filePath = path
	a.log.Info("document saved", "path", path, "encrypted", opts.Encryption.Enabled)
	a.status = "Saved " + filepath.Base(path)
	return nil
}

func (a *App) exportPDF() error {
	path, err := dialog.File().Filter("PDF documents", "pdf").Title("Export PDF").Save()
	if err != nil {
		return err
	}
	if filepath.Ext(path) == "" {
		path += ".pdf"
	}
	opts := export.DocumentOptions(a.cfg.Page, a.fontSizePt, a.meta.Title)
	if err := export.WriteFile(path, a.state.HTML(), opts); err != nil {
		return err
	}
	a.log.Info("pdf exported", "path", path)
	a.status = "Exported " + filepath.Base(path)
	return nil
}
