// Package tui is the interactive console: an overview of the platform's
// ingestion state, a sensor search, and the push schedule manager for one
// sensor. Backend calls run as commands; the push rule table additionally
// receives snapshots from its background poller.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/opensensing/pushdash/internal/apiclient"
	"github.com/opensensing/pushdash/internal/authgate"
	"github.com/opensensing/pushdash/internal/catalog"
	"github.com/opensensing/pushdash/internal/config"
	"github.com/opensensing/pushdash/internal/interval"
	"github.com/opensensing/pushdash/internal/pushform"
	"github.com/opensensing/pushdash/internal/pushlist"
	"github.com/opensensing/pushdash/internal/store"
)

const (
	viewOverview = "overview"
	viewSensors  = "sensors"
	viewPush     = "push"

	requestTimeout = 8 * time.Second
)

type model struct {
	cfg      config.Config
	logger   *slog.Logger
	client   *apiclient.Client
	sessions *store.Store
	gate     *authgate.Gate
	keys     keyMap

	width    int
	height   int
	quitting bool

	activeView string
	spin       spinner.Model
	statusText string
	errorText  string

	// overview
	status          apiclient.CollectionStatus
	stats           apiclient.CollectionStatistics
	overviewLoaded  bool
	loadingOverview bool

	// sensor search
	searchInput  textinput.Model
	sensorsTable table.Model
	sensors      apiclient.SensorsPage
	searchQuery  string
	searching    bool

	// push schedule manager
	sensorID       int64
	cat            *catalog.Catalog
	catalogLoading bool
	form           *pushform.Controller
	poller         *pushlist.Poller
	snapshots      chan pushlist.Snapshot
	list           pushlist.Snapshot
	rulesTable     table.Model
	targetIndex    int
	confirmDelete  bool
	saving         bool
	deleting       bool

	// login gate
	loginUser  textinput.Model
	loginPass  textinput.Model
	loginFocus int
	loggingIn  bool
	loginMsg   string

	// commands interrupted by a 401, replayed after a successful login
	pending []tea.Cmd
}

// Run starts the console. sensorID selects the sensor whose push schedule
// opens first; zero starts on the sensor search instead.
func Run(cfg config.Config, logger *slog.Logger, sensorID int64) error {
	client, err := apiclient.New(cfg)
	if err != nil {
		return err
	}

	sessions, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer sessions.Close()
	if err := sessions.AutoMigrate(context.Background()); err != nil {
		return err
	}
	if session, err := sessions.LoadSession(context.Background(), cfg.APIURL); err == nil {
		client.RestoreSession(session.Cookies)
	}

	program := tea.NewProgram(newModel(cfg, client, sessions, logger, sensorID), tea.WithAltScreen())
	final, err := program.Run()
	if finalModel, ok := final.(model); ok && finalModel.poller != nil {
		finalModel.poller.Close()
	}
	return err
}

func newModel(cfg config.Config, client *apiclient.Client, sessions *store.Store, logger *slog.Logger, sensorID int64) model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot

	searchInput := textinput.New()
	searchInput.Placeholder = "sensor name"
	searchInput.CharLimit = 120

	loginUser := textinput.New()
	loginUser.Placeholder = "username"
	loginPass := textinput.New()
	loginPass.Placeholder = "password"
	loginPass.EchoMode = textinput.EchoPassword

	m := model{
		cfg:          cfg,
		logger:       logger,
		client:       client,
		sessions:     sessions,
		gate:         authgate.New(client, logger),
		keys:         newKeyMap(),
		activeView:   viewSensors,
		spin:         spin,
		searchInput:  searchInput,
		sensorsTable: newSensorsTable(),
		rulesTable:   newRulesTable(),
		loginUser:    loginUser,
		loginPass:    loginPass,
		snapshots:    make(chan pushlist.Snapshot, 16),
	}
	if sensorID > 0 {
		m.attachSensor(sensorID)
		m.activeView = viewPush
	} else {
		m.searchInput.Focus()
	}
	return m
}

// attachSensor points the push manager at a sensor, tearing down the poller
// of the previously attached one.
func (m *model) attachSensor(sensorID int64) {
	if m.poller != nil {
		m.poller.Close()
	}
	m.sensorID = sensorID
	m.list = pushlist.Snapshot{}
	m.confirmDelete = false

	snapshots := m.snapshots
	m.poller = pushlist.New(
		m.client,
		sensorID,
		time.Duration(m.cfg.ListPollSec)*time.Second,
		m.logger,
		func(snapshot pushlist.Snapshot) { snapshots <- snapshot },
	)

	form := pushform.New(m.client, sensorID, m.logger)
	// The delete confirmation is the y/n modal; by the time the controller
	// runs, the user already confirmed.
	form.Confirm = func(string) bool { return true }
	poller := m.poller
	form.OnMutated = func() { poller.Refresh() }
	m.form = form
	m.targetIndex = 0
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, m.waitForSnapshot()}
	if m.sensorID > 0 {
		cmds = append(cmds, m.loadCatalogCmd(), m.loadPageCmd(1))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(typed)
		return m, cmd

	case pushPageMsg:
		return m.handlePushPage(typed)

	case catalogLoadedMsg:
		return m.handleCatalogLoaded(typed)

	case saveDoneMsg:
		m.saving = false
		if typed.err != nil {
			return m.handleActionErr(typed.err, m.saveCmd())
		}
		m.statusText = "push setting saved"
		m.errorText = ""
		m.form.Reset()
		return m, nil

	case deleteDoneMsg:
		m.deleting = false
		if typed.err != nil {
			return m.handleActionErr(typed.err, m.deleteCmd())
		}
		m.statusText = "push setting deleted"
		m.errorText = ""
		m.form.Reset()
		return m, nil

	case overviewLoadedMsg:
		m.loadingOverview = false
		if typed.err != nil {
			return m.handleActionErr(typed.err, m.loadOverviewCmd())
		}
		m.status = typed.status
		m.stats = typed.stats
		m.overviewLoaded = true
		m.errorText = ""
		return m, nil

	case sensorsLoadedMsg:
		m.searching = false
		if typed.err != nil {
			return m.handleActionErr(typed.err, m.searchCmd(typed.query, typed.page))
		}
		m.sensors = typed.result
		m.searchQuery = typed.query
		m.errorText = ""
		m.rebuildSensorRows()
		return m, nil

	case loginDoneMsg:
		return m.handleLoginDone(typed)
	}

	if typed, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(typed)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) && !m.typingInInput() {
		m.quitting = true
		return m, tea.Quit
	}

	if m.gate.State() == authgate.StateUnauthorized {
		return m.handleLoginKey(msg)
	}

	if key.Matches(msg, m.keys.Tab) {
		return m.cycleView()
	}

	switch m.activeView {
	case viewOverview:
		return m.handleOverviewKey(msg)
	case viewSensors:
		return m.handleSensorsKey(msg)
	case viewPush:
		return m.handlePushKey(msg)
	}
	return m, nil
}

func (m model) typingInInput() bool {
	if m.gate.State() == authgate.StateUnauthorized {
		return true
	}
	return m.activeView == viewSensors && m.searchInput.Focused()
}

func (m model) cycleView() (tea.Model, tea.Cmd) {
	m.errorText = ""
	switch m.activeView {
	case viewOverview:
		m.activeView = viewSensors
		m.searchInput.Focus()
		return m, nil
	case viewSensors:
		m.searchInput.Blur()
		if m.sensorID > 0 {
			m.activeView = viewPush
			return m, nil
		}
		m.activeView = viewOverview
		m.loadingOverview = true
		return m, m.loadOverviewCmd()
	default:
		m.activeView = viewOverview
		m.loadingOverview = true
		return m, m.loadOverviewCmd()
	}
}

func (m model) handleOverviewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Refresh) || key.Matches(msg, m.keys.Activate) {
		m.loadingOverview = true
		return m, m.loadOverviewCmd()
	}
	return m, nil
}

func (m model) handleSensorsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Activate):
		if m.searchInput.Focused() {
			query := strings.TrimSpace(m.searchInput.Value())
			if query == "" {
				return m, nil
			}
			m.searching = true
			m.searchInput.Blur()
			return m, m.searchCmd(query, 1)
		}
		if row := m.sensorsTable.SelectedRow(); row != nil {
			id, err := strconv.ParseInt(row[0], 10, 64)
			if err != nil {
				return m, nil
			}
			m.attachSensor(id)
			m.activeView = viewPush
			return m, tea.Batch(m.loadCatalogCmd(), m.loadPageCmd(1))
		}
		return m, nil

	case msg.String() == "/":
		m.searchInput.Focus()
		return m, nil

	case key.Matches(msg, m.keys.PrevPage) && !m.searchInput.Focused():
		return m.changeSensorsPage(-1)
	case key.Matches(msg, m.keys.NextPage) && !m.searchInput.Focused():
		return m.changeSensorsPage(1)
	}

	var cmd tea.Cmd
	if m.searchInput.Focused() {
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	m.sensorsTable, cmd = m.sensorsTable.Update(msg)
	return m, cmd
}

func (m model) changeSensorsPage(delta int) (tea.Model, tea.Cmd) {
	if m.searching || m.searchQuery == "" {
		return m, nil
	}
	page := m.sensors.Pagination.CurrentPage + delta
	if page < 1 || (m.sensors.Pagination.TotalPages > 0 && page > m.sensors.Pagination.TotalPages) {
		return m, nil
	}
	m.searching = true
	return m, m.searchCmd(m.searchQuery, page)
}

func (m model) handlePushKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmDelete {
		switch msg.String() {
		case "y", "Y":
			m.confirmDelete = false
			m.deleting = true
			return m, m.deleteCmd()
		case "n", "N", "esc":
			m.confirmDelete = false
			m.statusText = "delete cancelled"
			return m, nil
		}
		return m, nil
	}

	if m.saving || m.deleting {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.TargetNext):
		m.moveTarget(1)
		return m, nil
	case key.Matches(msg, m.keys.TargetPrev):
		m.moveTarget(-1)
		return m, nil
	case key.Matches(msg, m.keys.IntervalUp):
		m.form.SetIntervalMinutes(interval.Next(m.form.Draft.IntervalMinutes))
		return m, nil
	case key.Matches(msg, m.keys.IntervalDown):
		m.form.SetIntervalMinutes(interval.Prev(m.form.Draft.IntervalMinutes))
		return m, nil
	case key.Matches(msg, m.keys.ToggleActive):
		m.form.ToggleActive()
		return m, nil
	case key.Matches(msg, m.keys.ToggleOrig):
		m.form.ToggleOriginalTimestamp()
		return m, nil
	case key.Matches(msg, m.keys.Save):
		if !m.form.Draft.HasTarget {
			m.errorText = "select a target sensor first"
			return m, nil
		}
		m.saving = true
		m.statusText = "saving..."
		return m, m.saveCmd()
	case key.Matches(msg, m.keys.Delete):
		if m.form.Draft.EditMode && m.form.Draft.RecordID != 0 {
			m.confirmDelete = true
		}
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		m.form.Reset()
		m.targetIndex = 0
		m.statusText = "edit cancelled"
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		m.poller.Refresh()
		return m, nil
	case key.Matches(msg, m.keys.PrevPage):
		return m.changeRulesPage(-1)
	case key.Matches(msg, m.keys.NextPage):
		return m.changeRulesPage(1)
	case key.Matches(msg, m.keys.Activate):
		return m.beginEditSelected()
	}

	var cmd tea.Cmd
	m.rulesTable, cmd = m.rulesTable.Update(msg)
	return m, cmd
}

func (m *model) moveTarget(delta int) {
	entries := m.cat.Entries()
	if len(entries) == 0 {
		return
	}
	m.targetIndex += delta
	if m.targetIndex < 0 {
		m.targetIndex = len(entries) - 1
	}
	if m.targetIndex >= len(entries) {
		m.targetIndex = 0
	}
	m.form.SelectTarget(entries[m.targetIndex])
}

// changeRulesPage records the page intent and issues a fresh load. While a
// load is outstanding the action is suppressed.
func (m model) changeRulesPage(delta int) (tea.Model, tea.Cmd) {
	if m.list.Loading {
		return m, nil
	}
	page := m.poller.Page() + delta
	if page < 1 || (m.list.Pagination.TotalPages > 0 && page > m.list.Pagination.TotalPages) {
		return m, nil
	}
	return m, m.loadPageCmd(page)
}

func (m model) beginEditSelected() (tea.Model, tea.Cmd) {
	cursor := m.rulesTable.Cursor()
	if cursor < 0 || cursor >= len(m.list.Rows) {
		return m, nil
	}
	m.form.BeginEdit(m.list.Rows[cursor], m.cat)
	m.targetIndex = m.targetIndexFor(m.form.Draft.Target)
	m.statusText = fmt.Sprintf("editing record %d", m.form.Draft.RecordID)
	m.errorText = ""
	return m, nil
}

func (m model) targetIndexFor(target catalog.Entry) int {
	for index, entry := range m.cat.Entries() {
		if entry.DeviceID == target.DeviceID && entry.SensorID == target.SensorID {
			return index
		}
	}
	return 0
}

func (m model) handlePushPage(msg pushPageMsg) (tea.Model, tea.Cmd) {
	rearm := m.waitForSnapshot()
	if m.gate.Observe(msg.snapshot.Err) {
		// Stop the polling loop while unauthorized; a successful login
		// resumes it with a single refresh.
		m.poller.Pause()
		return m.enterLogin(), rearm
	}
	m.list = msg.snapshot
	if msg.snapshot.Err != nil {
		m.errorText = msg.snapshot.Err.Error()
	}
	m.rebuildRuleRows()
	return m, rearm
}

func (m model) handleCatalogLoaded(msg catalogLoadedMsg) (tea.Model, tea.Cmd) {
	m.catalogLoading = false
	if msg.err != nil {
		return m.handleActionErr(msg.err, m.loadCatalogCmd())
	}
	m.cat = msg.cat
	m.errorText = ""
	if entries := m.cat.Entries(); len(entries) > 0 && !m.form.Draft.HasTarget {
		m.targetIndex = 0
		m.form.SelectTarget(entries[0])
	}
	m.rebuildRuleRows()
	return m, nil
}

// handleActionErr routes a failed command: a 401 swaps in the login prompt
// and queues the command for replay; anything else is shown next to the
// form.
func (m model) handleActionErr(err error, retry tea.Cmd) (tea.Model, tea.Cmd) {
	if m.gate.Observe(err) {
		m.pending = append(m.pending, retry)
		return m.enterLogin(), nil
	}
	m.errorText = err.Error()
	m.statusText = ""
	return m, nil
}

func (m model) enterLogin() model {
	m.loginMsg = ""
	m.loginFocus = 0
	m.loginUser.Focus()
	m.loginPass.Blur()
	return m
}

func (m model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		if m.loginFocus == 0 {
			m.loginFocus = 1
			m.loginUser.Blur()
			m.loginPass.Focus()
		} else {
			m.loginFocus = 0
			m.loginPass.Blur()
			m.loginUser.Focus()
		}
		return m, nil
	case "enter":
		username := strings.TrimSpace(m.loginUser.Value())
		password := m.loginPass.Value()
		if username == "" || password == "" {
			m.loginMsg = "username and password are required"
			return m, nil
		}
		m.loggingIn = true
		m.loginMsg = ""
		return m, m.loginCmd(username, password)
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.loginUser, cmd = m.loginUser.Update(msg)
	} else {
		m.loginPass, cmd = m.loginPass.Update(msg)
	}
	return m, cmd
}

func (m model) handleLoginDone(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	m.loggingIn = false
	if msg.err != nil {
		m.loginMsg = "invalid credentials"
		return m, nil
	}
	m.loginMsg = ""
	m.statusText = "login succeeded"
	m.loginPass.SetValue("")

	pending := m.pending
	m.pending = nil
	if m.poller != nil {
		// The poller was paused on the 401; one refresh restarts its cycle.
		pending = append(pending, m.refreshCmd())
	}
	return m, tea.Batch(pending...)
}

type pushPageMsg struct {
	snapshot pushlist.Snapshot
}

type catalogLoadedMsg struct {
	cat *catalog.Catalog
	err error
}

type saveDoneMsg struct {
	err error
}

type deleteDoneMsg struct {
	err error
}

type overviewLoadedMsg struct {
	status apiclient.CollectionStatus
	stats  apiclient.CollectionStatistics
	err    error
}

type sensorsLoadedMsg struct {
	result apiclient.SensorsPage
	query  string
	page   int
	err    error
}

type loginDoneMsg struct {
	username string
	err      error
}

func (m model) waitForSnapshot() tea.Cmd {
	snapshots := m.snapshots
	return func() tea.Msg {
		return pushPageMsg{snapshot: <-snapshots}
	}
}

func (m model) loadPageCmd(page int) tea.Cmd {
	poller := m.poller
	return func() tea.Msg {
		poller.Load(page)
		return nil
	}
}

func (m model) refreshCmd() tea.Cmd {
	poller := m.poller
	return func() tea.Msg {
		poller.Refresh()
		return nil
	}
}

func (m model) loadCatalogCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		cat, err := catalog.Load(ctx, client)
		return catalogLoadedMsg{cat: cat, err: err}
	}
}

func (m model) saveCmd() tea.Cmd {
	form := m.form
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return saveDoneMsg{err: form.Save(ctx)}
	}
}

func (m model) deleteCmd() tea.Cmd {
	form := m.form
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return deleteDoneMsg{err: form.DeleteCurrent(ctx)}
	}
}

func (m model) loadOverviewCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var msg overviewLoadedMsg
		group, ctx := errgroup.WithContext(ctx)
		group.Go(func() error {
			status, err := client.CollectionStatus(ctx)
			msg.status = status
			return err
		})
		group.Go(func() error {
			stats, err := client.CollectionStatistics(ctx)
			msg.stats = stats
			return err
		})
		msg.err = group.Wait()
		return msg
	}
}

func (m model) searchCmd(query string, page int) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		result, err := client.SearchSensors(ctx, query, page)
		return sensorsLoadedMsg{result: result, query: query, page: page, err: err}
	}
}

func (m model) loginCmd(username, password string) tea.Cmd {
	gate := m.gate
	client := m.client
	sessions := m.sessions
	apiURL := m.cfg.APIURL
	logger := m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := gate.Login(ctx, username, password); err != nil {
			return loginDoneMsg{username: username, err: err}
		}
		if sessions != nil {
			if err := sessions.SaveSession(ctx, apiURL, username, client.SessionCookies()); err != nil {
				logger.Warn("persist session failed", "error", err)
			}
		}
		return loginDoneMsg{username: username}
	}
}
