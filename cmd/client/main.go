package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"mitm-lab/client"
	"mitm-lab/domain"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	if err := os.MkdirAll(config.HistoryDir, 0o700); err != nil {
		return fmt.Errorf("history dir: %w", err)
	}

	serverAddr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	menu := &menu{
		client:       client.New(serverAddr, config.HistoryDir, log),
		pollInterval: config.PollInterval,
		in:           bufio.NewScanner(os.Stdin),
		log:          log,
	}
	return menu.loop(ctx)
}

// menu drives the interactive session. A logged-in user has a session and a
// background inbox poller; both are torn down on logout and on quit.
type menu struct {
	client       *client.Client
	pollInterval time.Duration
	in           *bufio.Scanner
	log          *slog.Logger

	session    client.Session
	loggedIn   bool
	stopPoller context.CancelFunc
}

func (m *menu) loop(ctx context.Context) error {
	color.New(color.FgCyan).Println("Messaging client connected to the lab server")

	for ctx.Err() == nil {
		m.printChoices()
		choice, ok := m.prompt("> ")
		if !ok {
			break
		}

		switch choice {
		case "1":
			m.register()
		case "2":
			m.login(ctx)
		case "3":
			m.send()
		case "4":
			m.inbox()
		case "5":
			m.logout()
		case "6", "q", "quit":
			m.logout()
			return nil
		case "":
		default:
			fmt.Println("Unknown choice")
		}
	}
	m.logout()
	return nil
}

func (m *menu) printChoices() {
	fmt.Println()
	if m.loggedIn {
		color.New(color.FgGreen).Println("Logged in as " + m.session.Username)
	}
	fmt.Println("1. Register")
	fmt.Println("2. Login")
	fmt.Println("3. Send a message")
	fmt.Println("4. Read inbox")
	fmt.Println("5. Logout")
	fmt.Println("6. Quit")
}

func (m *menu) register() {
	username, ok := m.prompt("Username: ")
	if !ok || username == "" {
		return
	}
	password, err := m.promptPassword("Password: ")
	if err != nil {
		fmt.Println("Password read failed:", err)
		return
	}

	if err := m.client.Register(username, password); err != nil {
		color.New(color.FgRed).Println(err.Error())
		return
	}
	color.New(color.FgGreen).Println("Account created, you can log in")
}

func (m *menu) login(ctx context.Context) {
	if m.loggedIn {
		m.logout()
	}

	username, ok := m.prompt("Username: ")
	if !ok || username == "" {
		return
	}
	password, err := m.promptPassword("Password: ")
	if err != nil {
		fmt.Println("Password read failed:", err)
		return
	}

	session, err := m.client.Login(username, password)
	if err != nil {
		color.New(color.FgRed).Println("Login failed: " + err.Error())
		return
	}
	m.session = session
	m.loggedIn = true
	color.New(color.FgGreen).Println("Welcome " + username)

	// Background inbox watcher for the lifetime of the session.
	pollCtx, cancel := context.WithCancel(ctx)
	m.stopPoller = cancel
	poller := client.NewPoller(m.client, session, m.pollInterval, func(count int) {
		color.New(color.FgYellow).Println(
			"\nYou have " + strconv.Itoa(count) + " new message(s), choose 4 to read them")
	}, m.log)
	go func() {
		_ = poller.Run(pollCtx)
	}()
}

func (m *menu) send() {
	if !m.loggedIn {
		fmt.Println("Log in first")
		return
	}
	to, ok := m.prompt("To: ")
	if !ok || to == "" {
		return
	}
	text, ok := m.prompt("Message: ")
	if !ok || text == "" {
		return
	}
	if err := m.client.Send(m.session, to, text); err != nil {
		color.New(color.FgRed).Println(err.Error())
		return
	}
	color.New(color.FgGreen).Println("Sent")
}

func (m *menu) inbox() {
	if !m.loggedIn {
		fmt.Println("Log in first")
		return
	}
	messages, err := m.client.Inbox(m.session)
	if err != nil {
		color.New(color.FgRed).Println(err.Error())
		return
	}
	if len(messages) == 0 {
		fmt.Println("Inbox is empty")
		return
	}
	renderInbox(messages)
}

func renderInbox(messages []domain.Message) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "From", "Message"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, message := range messages {
		table.Append([]string{
			time.Unix(message.Timestamp, 0).Format("15:04:05"),
			message.Sender,
			message.Text,
		})
	}
	table.Render()
}

func (m *menu) logout() {
	if !m.loggedIn {
		return
	}
	if m.stopPoller != nil {
		m.stopPoller()
		m.stopPoller = nil
	}
	m.client.Logout(m.session)
	m.session = client.Session{}
	m.loggedIn = false
	fmt.Println("Logged out")
}

func (m *menu) prompt(label string) (string, bool) {
	fmt.Print(label)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

// promptPassword reads without echo when stdin is a terminal, and falls back
// to a plain line read otherwise (piped input in scripts).
func (m *menu) promptPassword(label string) (string, error) {
	fmt.Print(label)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	if !m.in.Scan() {
		return "", fmt.Errorf("input closed")
	}
	return m.in.Text(), nil
}
