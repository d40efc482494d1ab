package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"
	"time"

	"gioui.org/app"
	"gioui.org/font"
	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/charmbracelet/log"

	"task-list/internal/config"
	"task-list/internal/logging"
	"task-list/internal/session"
	"task-list/pkg/persist"
	"task-list/pkg/task"
)

var (
	theme *material.Theme

	colorMuted    = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	colorOK       = color.NRGBA{R: 0x00, G: 0xC0, B: 0x00, A: 0xFF}
	colorWarn     = color.NRGBA{R: 0xFF, G: 0xA0, B: 0x00, A: 0xFF}
	colorError    = color.NRGBA{R: 0xFF, G: 0x40, B: 0x40, A: 0xFF}
	colorSelected = color.NRGBA{R: 0x00, G: 0xA0, B: 0xFF, A: 0xFF}
	colorOverdue  = color.NRGBA{R: 0xFF, G: 0x60, B: 0x60, A: 0xFF}
)

type UI struct {
	sess           *session.Session
	savedIndicator time.Duration

	// Form
	titleEditor widget.Editor
	tagsEditor  widget.Editor
	dueEditor   widget.Editor
	addBtn      widget.Clickable
	formErr     string

	// Bulk actions
	deleteBtn      widget.Clickable
	completeAllBtn widget.Clickable
	clearBtn       widget.Clickable
	saveBtn        widget.Clickable

	// List
	taskList widget.List
	rows     map[string]*taskRow
	selected string
}

type taskRow struct {
	done widget.Bool
	pick widget.Clickable
}

func main() {
	cfgPath := flag.String("config", "", "path to a tasks.toml file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat, "ui")

	theme = material.NewTheme()
	theme.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))
	theme.Palette.Bg = color.NRGBA{R: 0x12, G: 0x12, B: 0x12, A: 0xFF}
	theme.Palette.Fg = color.NRGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	theme.Palette.ContrastBg = color.NRGBA{R: 0x30, G: 0x60, B: 0xA0, A: 0xFF}
	theme.Palette.ContrastFg = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw, closeGW, err := session.OpenGateway(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	w := new(app.Window)
	sess, err := session.Open(ctx, gw, session.Options{
		Mode:         cfg.Mode(),
		OnSaveStatus: func(persist.Status) { w.Invalidate() },
	})
	if err != nil {
		log.Fatalf("session: %v", err)
	}
	sess.Subscribe(func(task.Change) { w.Invalidate() })
	sess.Start(ctx)

	ui := &UI{
		sess:           sess,
		savedIndicator: cfg.SavedIndicator(),
		rows:           make(map[string]*taskRow),
	}
	ui.taskList.Axis = layout.Vertical
	ui.titleEditor.SingleLine = true
	ui.titleEditor.Submit = true
	ui.tagsEditor.SingleLine = true
	ui.tagsEditor.Submit = true
	ui.dueEditor.SingleLine = true
	ui.dueEditor.Submit = true

	go func() {
		w.Option(app.Title(cfg.WindowTitle))
		w.Option(app.Size(unit.Dp(720), unit.Dp(640)))
		runErr := ui.run(w)

		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := sess.Close(closeCtx); err != nil {
			log.Error("final save failed", "err", err)
		}
		closeCancel()
		closeGW()
		if runErr != nil {
			log.Fatal(runErr)
		}
		os.Exit(0)
	}()
	app.Main()
}

func (ui *UI) run(w *app.Window) error {
	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			ui.handleInput(gtx)
			ui.layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

func (ui *UI) handleInput(gtx layout.Context) {
	submitted := false
	for _, ed := range []*widget.Editor{&ui.titleEditor, &ui.tagsEditor, &ui.dueEditor} {
		for {
			ev, ok := ed.Update(gtx)
			if !ok {
				break
			}
			if _, ok := ev.(widget.SubmitEvent); ok {
				submitted = true
			}
		}
	}
	if ui.addBtn.Clicked(gtx) || submitted {
		ui.addTask()
	}
	if ui.deleteBtn.Clicked(gtx) && ui.selected != "" {
		ui.sess.Delete(ui.selected)
		ui.selected = ""
	}
	if ui.completeAllBtn.Clicked(gtx) {
		ui.sess.CompleteAll()
	}
	if ui.clearBtn.Clicked(gtx) {
		ui.sess.ClearCompleted()
	}
	if ui.saveBtn.Clicked(gtx) {
		// status is reported through the save status line
		_ = ui.sess.Save(context.Background())
	}
}

func (ui *UI) addTask() {
	_, err := ui.sess.AddTask(ui.titleEditor.Text(), ui.tagsEditor.Text(), ui.dueEditor.Text())
	if err != nil {
		ui.formErr = err.Error()
		return
	}
	ui.formErr = ""
	ui.titleEditor.SetText("")
	ui.tagsEditor.SetText("")
	ui.dueEditor.SetText("")
}

func (ui *UI) layout(gtx layout.Context) layout.Dimensions {
	tasks := ui.sess.Tasks()
	ui.syncRows(tasks)

	return layout.Inset{Top: unit.Dp(16), Right: unit.Dp(16), Bottom: unit.Dp(16), Left: unit.Dp(16)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.H5(theme, "Tasks").Layout(gtx)
			}),
			layout.Rigid(ui.layoutLoadWarning),
			layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
			layout.Rigid(ui.layoutForm),
			layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
			layout.Rigid(ui.layoutActions),
			layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
				return ui.layoutTasks(gtx, tasks)
			}),
			layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
			layout.Rigid(ui.layoutStatus),
		)
	})
}

// syncRows keeps one widget set per task and drops rows for removed tasks.
func (ui *UI) syncRows(tasks []task.Task) {
	live := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		live[t.ID] = true
		row, ok := ui.rows[t.ID]
		if !ok {
			row = &taskRow{}
			ui.rows[t.ID] = row
		}
		row.done.Value = t.IsCompleted
	}
	for id := range ui.rows {
		if !live[id] {
			delete(ui.rows, id)
		}
	}
	if ui.selected != "" && !live[ui.selected] {
		ui.selected = ""
	}
}

func (ui *UI) layoutLoadWarning(gtx layout.Context) layout.Dimensions {
	err := ui.sess.LoadError()
	if err == nil {
		return layout.Dimensions{}
	}
	label := material.Caption(theme, fmt.Sprintf("Could not read saved tasks, started empty: %v", err))
	label.Color = colorWarn
	return label.Layout(gtx)
}

func (ui *UI) layoutForm(gtx layout.Context) layout.Dimensions {
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
				layout.Flexed(3, func(gtx layout.Context) layout.Dimensions {
					return material.Editor(theme, &ui.titleEditor, "New task...").Layout(gtx)
				}),
				layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
				layout.Flexed(2, func(gtx layout.Context) layout.Dimensions {
					return material.Editor(theme, &ui.tagsEditor, "Tags").Layout(gtx)
				}),
				layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return material.Editor(theme, &ui.dueEditor, "Due YYYY-MM-DD").Layout(gtx)
				}),
				layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return material.Button(theme, &ui.addBtn, "Add").Layout(gtx)
				}),
			)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			if ui.formErr == "" {
				return layout.Dimensions{}
			}
			label := material.Caption(theme, ui.formErr)
			label.Color = colorError
			return label.Layout(gtx)
		}),
	)
}

func (ui *UI) layoutActions(gtx layout.Context) layout.Dimensions {
	children := []layout.FlexChild{
		layout.Rigid(actionBtn(&ui.deleteBtn, "Delete")),
		layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
		layout.Rigid(actionBtn(&ui.completeAllBtn, "Complete all")),
		layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
		layout.Rigid(actionBtn(&ui.clearBtn, "Clear completed")),
	}
	if ui.sess.Mode() == persist.ModeManual {
		children = append(children,
			layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
			layout.Rigid(actionBtn(&ui.saveBtn, "Save")),
		)
	}
	return layout.Flex{}.Layout(gtx, children...)
}

func actionBtn(btn *widget.Clickable, label string) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		return material.Button(theme, btn, label).Layout(gtx)
	}
}

func (ui *UI) layoutTasks(gtx layout.Context, tasks []task.Task) layout.Dimensions {
	return material.List(theme, &ui.taskList).Layout(gtx, len(tasks), func(gtx layout.Context, i int) layout.Dimensions {
		t := tasks[i]
		row := ui.rows[t.ID]
		if row.done.Update(gtx) {
			ui.sess.SetCompleted(t.ID, row.done.Value)
		}
		if row.pick.Clicked(gtx) {
			ui.selected = t.ID
		}

		return layout.Inset{Bottom: unit.Dp(4)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return material.CheckBox(theme, &row.done, "").Layout(gtx)
				}),
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return row.pick.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
						return ui.layoutTaskText(gtx, t)
					})
				}),
			)
		})
	})
}

func (ui *UI) layoutTaskText(gtx layout.Context, t task.Task) layout.Dimensions {
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			label := material.Body1(theme, t.Title)
			if t.ID == ui.selected {
				label.Color = colorSelected
				label.Font.Weight = font.Bold
			}
			if t.IsCompleted {
				label.Color = colorMuted
			}
			return label.Layout(gtx)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			detail, overdue := taskDetail(t, gtx.Now)
			if detail == "" {
				return layout.Dimensions{}
			}
			label := material.Caption(theme, detail)
			label.Color = colorMuted
			if overdue {
				label.Color = colorOverdue
			}
			return label.Layout(gtx)
		}),
	)
}

func taskDetail(t task.Task, now time.Time) (string, bool) {
	var detail string
	if t.Tags != "" {
		detail = "#" + t.Tags
	}
	overdue := false
	if t.DueDate != nil {
		if detail != "" {
			detail += "  "
		}
		detail += "due " + t.DueDate.Local().Format(task.DueLayout)
		overdue = !t.IsCompleted && t.DueDate.Before(now)
	}
	return detail, overdue
}

// layoutStatus shows "Saved" for savedIndicator after a successful save and
// schedules the redraw that hides it.
func (ui *UI) layoutStatus(gtx layout.Context) layout.Dimensions {
	st := ui.sess.SaveStatus()
	var msg string
	c := colorMuted
	switch {
	case st.Attempted() && !st.OK:
		msg = fmt.Sprintf("Save failed: %v", st.Err)
		c = colorError
	case ui.sess.Mode() == persist.ModeManual && ui.sess.Dirty():
		msg = "Unsaved changes"
		c = colorWarn
	case st.OK && gtx.Now.Before(st.At.Add(ui.savedIndicator)):
		msg = "Saved"
		c = colorOK
		gtx.Execute(op.InvalidateCmd{At: st.At.Add(ui.savedIndicator)})
	}
	if msg == "" {
		return layout.Dimensions{}
	}
	label := material.Caption(theme, msg)
	label.Color = c
	return label.Layout(gtx)
}
