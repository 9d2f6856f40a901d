// Package tui is the terminal dashboard of the print server
package tui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/storekit/thermalprint/internal/printer"
)

const maxLogs = 200

// Dashboard shows attached printers, recent jobs, server status and logs
type Dashboard struct {
	App  *tview.Application
	jobs *printer.JobLog
	addr string

	printersList *tview.List
	jobsTable    *tview.Table
	statusBox    *tview.TextView
	logsArea     *tview.TextView
	commandInput *tview.InputField

	mu        sync.Mutex
	printers  map[string]printer.Device
	logs      []string
	startTime time.Time
	running   atomic.Bool
}

// NewDashboard creates the dashboard for a server listening on addr
func NewDashboard(jobs *printer.JobLog, addr string) *Dashboard {
	d := &Dashboard{
		App:       tview.NewApplication(),
		jobs:      jobs,
		addr:      addr,
		printers:  make(map[string]printer.Device),
		startTime: time.Now(),
	}
	d.setupUI()
	return d
}

func (d *Dashboard) setupUI() {
	d.printersList = tview.NewList()
	d.printersList.SetBorder(true)
	d.printersList.SetTitle("Attached Printers")

	d.jobsTable = tview.NewTable()
	d.jobsTable.SetBorder(true)
	d.jobsTable.SetTitle("Print Jobs")

	d.statusBox = tview.NewTextView()
	d.statusBox.SetBorder(true)
	d.statusBox.SetTitle("Server Status")
	d.statusBox.SetDynamicColors(true)

	d.logsArea = tview.NewTextView()
	d.logsArea.SetBorder(true)
	d.logsArea.SetTitle("Server Logs")
	d.logsArea.SetDynamicColors(true)
	d.logsArea.SetScrollable(true)

	d.commandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0).
		SetPlaceholder("Type a command (e.g., 'help')").
		SetDoneFunc(func(key tcell.Key) {
			if key == tcell.KeyEnter {
				d.executeCommand(d.commandInput.GetText())
				d.commandInput.SetText("")
			}
		})

	topRow := tview.NewFlex().
		AddItem(d.printersList, 0, 1, false).
		AddItem(d.jobsTable, 0, 2, false).
		AddItem(d.statusBox, 0, 1, false)

	bottom := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(d.logsArea, 0, 3, false).
		AddItem(d.commandInput, 1, 0, true)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 1, false).
		AddItem(bottom, 0, 1, true)

	d.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			d.App.Stop()
			return nil
		}
		return event
	})

	d.App.SetRoot(root, true)
}

// Run draws the dashboard until Stop is called or the user quits
func (d *Dashboard) Run() error {
	d.refreshAll()
	d.running.Store(true)
	defer d.running.Store(false)

	done := make(chan struct{})
	defer close(done)
	go d.refreshTicker(done)

	return d.App.Run()
}

// Stop closes the dashboard
func (d *Dashboard) Stop() {
	d.App.Stop()
}

func (d *Dashboard) refreshTicker(done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			d.App.QueueUpdateDraw(d.refreshAll)
		}
	}
}

// update runs f on the UI goroutine when the app is running, inline otherwise
func (d *Dashboard) update(f func()) {
	if d.running.Load() {
		d.App.QueueUpdateDraw(f)
		return
	}
	f()
}

// PrinterAdded records a newly attached printer
func (d *Dashboard) PrinterAdded(dev printer.Device) {
	d.mu.Lock()
	d.printers[dev.ID] = dev
	d.mu.Unlock()
	d.update(d.refreshPrinters)
}

// PrinterRemoved forgets a detached printer
func (d *Dashboard) PrinterRemoved(dev printer.Device) {
	d.mu.Lock()
	delete(d.printers, dev.ID)
	d.mu.Unlock()
	d.update(d.refreshPrinters)
}

// Printers returns the attached printers sorted by ID
func (d *Dashboard) Printers() []printer.Device {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]printer.Device, 0, len(d.printers))
	for _, dev := range d.printers {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Dashboard) refreshAll() {
	d.refreshPrinters()
	d.refreshJobs()
	d.refreshStatus()
}

func (d *Dashboard) refreshPrinters() {
	d.printersList.Clear()

	printers := d.Printers()
	if len(printers) == 0 {
		d.printersList.AddItem("No printers detected", "", 0, nil)
		return
	}
	for _, p := range printers {
		d.printersList.AddItem(deviceTitle(p), deviceDetails(p), 0, nil)
	}
}

func (d *Dashboard) refreshJobs() {
	d.jobsTable.Clear()

	headers := []string{"Status", "Order", "Target", "Bytes", "Age"}
	for col, h := range headers {
		d.jobsTable.SetCell(0, col, tview.NewTableCell(h).SetAlign(tview.AlignCenter).SetSelectable(false))
	}

	jobs := d.jobs.All()
	for i, job := range jobs {
		row := i + 1
		d.jobsTable.SetCell(row, 0, tview.NewTableCell(statusIcon(job.Status)+" "+job.Status))
		d.jobsTable.SetCell(row, 1, tview.NewTableCell(job.OrderID))
		d.jobsTable.SetCell(row, 2, tview.NewTableCell(job.Target))
		d.jobsTable.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d", job.Bytes)))
		d.jobsTable.SetCell(row, 4, tview.NewTableCell(time.Since(job.CreatedAt).Truncate(time.Second).String()))
	}

	if len(jobs) > 0 {
		d.jobsTable.SetCell(len(jobs)+1, 0, tview.NewTableCell(jobSummary(jobs)).SetSelectable(false))
	}
}

func (d *Dashboard) refreshStatus() {
	uptime := time.Since(d.startTime)

	d.statusBox.SetText(fmt.Sprintf(`[green]Running[white]

Uptime: %dh %dm
API: %s
Printers: %d
Jobs: %d`, int(uptime.Hours()), int(uptime.Minutes())%60, d.addr, len(d.Printers()), len(d.jobs.All())))
}

func (d *Dashboard) executeCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	d.AddLog("> "+cmd, "command")

	switch strings.ToLower(parts[0]) {
	case "printers", "p":
		for _, p := range d.Printers() {
			d.AddLog(fmt.Sprintf("%s  %s", p.ID, deviceDetails(p)), "info")
		}
	case "jobs", "j":
		if len(parts) > 1 && parts[1] == "clear" {
			d.AddLog(fmt.Sprintf("Removed %d finished job(s)", d.jobs.ClearFinished()), "info")
		}
		d.refreshJobs()
	case "refresh":
		d.refreshAll()
	case "clear":
		d.mu.Lock()
		d.logs = nil
		d.mu.Unlock()
		d.logsArea.Clear()
	case "help", "h", "?":
		d.AddLog(strings.Join([]string{
			"Available commands:",
			"  printers, p      - List attached printers",
			"  jobs [clear], j  - Refresh jobs, optionally dropping finished ones",
			"  refresh          - Refresh all panels",
			"  clear            - Clear logs",
			"  quit, q          - Stop the server",
		}, "\n"), "info")
	case "quit", "q":
		d.App.Stop()
	default:
		d.AddLog(fmt.Sprintf("Unknown command: %s. Type 'help' for available commands.", parts[0]), "error")
	}
}

// AddLog appends a line to the log panel
func (d *Dashboard) AddLog(message string, level string) {
	color := "[white]"
	switch level {
	case "error":
		color = "[red]"
	case "warning":
		color = "[yellow]"
	case "command":
		color = "[cyan]"
	}
	entry := fmt.Sprintf("%s%s[white]\n", color, tview.Escape(message))

	d.mu.Lock()
	d.logs = append(d.logs, entry)
	if len(d.logs) > maxLogs {
		d.logs = d.logs[len(d.logs)-maxLogs:]
	}
	text := strings.Join(d.logs, "")
	d.mu.Unlock()

	d.update(func() {
		d.logsArea.SetText(text)
		d.logsArea.ScrollToEnd()
	})
}

// Logs returns the buffered log lines
func (d *Dashboard) Logs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.logs...)
}

// LogWriter returns an io.Writer feeding the log panel, one entry per write
func (d *Dashboard) LogWriter() io.Writer {
	return logWriter{d}
}

type logWriter struct {
	d *Dashboard
}

func (w logWriter) Write(p []byte) (int, error) {
	message := strings.TrimSpace(string(p))
	if message != "" {
		level := "info"
		switch {
		case strings.Contains(message, "\tERROR\t"):
			level = "error"
		case strings.Contains(message, "\tWARN\t"):
			level = "warning"
		}
		w.d.AddLog(message, level)
	}
	return len(p), nil
}

func deviceTitle(p printer.Device) string {
	if p.Description != "" {
		return p.Description
	}
	return p.ID
}

func deviceDetails(p printer.Device) string {
	details := strings.ToUpper(p.Type)
	if p.Path != "" {
		details += " • " + p.Path
	}
	if p.VendorID != 0 || p.ProductID != 0 {
		details += fmt.Sprintf(" • %04x:%04x", p.VendorID, p.ProductID)
	}
	return details
}

func jobSummary(jobs []printer.Job) string {
	var printing, completed, failed int
	for _, job := range jobs {
		switch job.Status {
		case printer.StatusPrinting:
			printing++
		case printer.StatusCompleted:
			completed++
		case printer.StatusFailed:
			failed++
		}
	}
	return fmt.Sprintf("[%d] Printing [%d] Completed [%d] Failed", printing, completed, failed)
}

func statusIcon(status string) string {
	switch status {
	case printer.StatusPrinting:
		return "🟡"
	case printer.StatusCompleted:
		return "✅"
	case printer.StatusFailed:
		return "❌"
	default:
		return "⚪"
	}
}
