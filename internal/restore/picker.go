package restore

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tis24dev/dynasave/internal/tui"
	"github.com/tis24dev/dynasave/internal/tui/components"
)

// listLabel renders the main list line: the run status as a colored
// symbol, then the backup name.
func listLabel(b *Backup) string {
	return fmt.Sprintf("[#%06x]%s[-] %s",
		tui.StatusColor(b.Status).Hex(), tui.StatusSymbol(b.Status), b.Name)
}

// pickBackupTUI shows a full-screen list of backups and returns the one
// the user selects. Escape or 'q' aborts.
func pickBackupTUI(ctx context.Context, backups []Backup) (*Backup, error) {
	tui.SetAbortContext(ctx)
	app := tui.NewApp()

	var chosen *Backup
	list := tview.NewList().ShowSecondaryText(true)
	for i := range backups {
		b := &backups[i]
		list.AddItem(listLabel(b), b.Label(), 0, func() {
			chosen = b
			app.Stop()
		})
	}

	list.SetDoneFunc(func() { app.Stop() })
	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})
	list.SetBorder(true).
		SetTitle(fmt.Sprintf(" dynasave: select backup (%d available) ", len(backups))).
		SetTitleAlign(tview.AlignCenter).
		SetTitleColor(tui.DynatraceBlue).
		SetBorderColor(tui.DynatraceBlue)

	app.SetRoot(list, true)
	if err := app.Run(); err != nil {
		return nil, fmt.Errorf("picker failed: %w", err)
	}

	if chosen == nil {
		return nil, ErrAborted
	}
	return chosen, nil
}

// confirmRestoreTUI shows a Yes/No modal before the deploy starts.
func confirmRestoreTUI(ctx context.Context, b *Backup, clusterURL string) (bool, error) {
	tui.SetAbortContext(ctx)
	app := tui.NewApp()

	confirmed := false
	components.ShowConfirm(app, "Restore",
		fmt.Sprintf("Deploy %s\n%s\n\nto %s?", b.Name, b.Label(), clusterURL),
		func() { confirmed = true },
		nil)

	if err := app.Run(); err != nil {
		return false, fmt.Errorf("confirm dialog failed: %w", err)
	}
	return confirmed, nil
}

// showErrorTUI displays a blocking error modal. Display failures are
// swallowed: the caller is already returning an error of its own.
func showErrorTUI(ctx context.Context, title, message string) {
	tui.SetAbortContext(ctx)
	app := tui.NewApp()
	components.ShowError(app, title, message)
	app.Run()
}
