package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/tuningstudio/tuning/internal/cart"
	"github.com/tuningstudio/tuning/internal/config"
	"github.com/tuningstudio/tuning/internal/logger"
	"github.com/tuningstudio/tuning/internal/query"
	"github.com/tuningstudio/tuning/internal/session"
	"github.com/tuningstudio/tuning/internal/storage"
	"github.com/tuningstudio/tuning/internal/tui"
	"github.com/tuningstudio/tuning/pkg/client"
	"github.com/tuningstudio/tuning/pkg/domain"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// stack is everything a command needs, wired in dependency order.
type stack struct {
	cfg     *config.Config
	log     *zap.Logger
	slots   storage.Slots
	api     *client.Client
	session *session.Store
	persist *session.Persistence
	cart    *cart.Cart
	unbind  []func()
}

// wire builds the client, session and cart over slots, restores saved
// cookies and loads the local cart. The cart follows the session from here on.
func wire(ctx context.Context, cfg *config.Config, slots storage.Slots, log *zap.Logger) (*stack, error) {
	api := client.New(cfg.API.BaseURL, client.WithTimeout(cfg.API.Timeout), client.WithLogger(log))

	persist := session.NewPersistence(slots, cfg.Session.Slot, api, log)
	if err := persist.Restore(ctx); err != nil {
		log.Warn("session_restore_failed", zap.Error(err))
	}

	crt := cart.New(
		cart.NewLocalCartStore(slots, cfg.Cart.Slot, log),
		cart.NewRemoteCartStore(api),
		cart.WithLogger(log),
		cart.WithTimeout(cfg.API.RequestTimeout),
	)
	if err := crt.Load(ctx); err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	st := session.New(api, log)
	s := &stack{cfg: cfg, log: log, slots: slots, api: api, session: st, persist: persist, cart: crt}
	s.unbind = append(s.unbind,
		st.Subscribe(func(snap session.Snapshot) {
			if snap.Loading {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), cfg.API.RequestTimeout)
			defer cancel()
			if err := crt.SetAuthenticated(ctx, snap.Authenticated()); err != nil {
				log.Warn("cart_follow_session_failed", zap.String("event", string(snap.Event)), zap.Error(err))
			}
		}),
		persist.Attach(st),
	)
	return s, nil
}

func (s *stack) Close() {
	for _, u := range s.unbind {
		u()
	}
	if err := s.slots.Close(); err != nil {
		s.log.Warn("storage_close_failed", zap.Error(err))
	}
}

func (s *stack) services() *tui.Services {
	return &tui.Services{
		Client:  s.api,
		Session: s.session,
		Cart:    s.cart,
		Cache:   query.New(s.cfg.Query.TTL, query.WithLoadTimeout(2*s.cfg.API.RequestTimeout)),
		SiteURL: s.cfg.Site.URL,
		Version: version,
	}
}

func run(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "version", "-v":
			fmt.Println("tuning " + version)
			return nil
		case "help", "--help", "-h":
			printHelp(os.Stdout)
			return nil
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Init(cfg.Log.Mode, cfg.Log.ToLoggerOptions())
	defer log.Sync() //nolint:errcheck
	command := "tui"
	if len(args) > 0 {
		command = args[0]
	}
	logger.Infow("tuning_start", "version", version, "command", command, "api", cfg.API.BaseURL)

	slots, err := storage.Open(cfg.Storage.ToStorageOptions())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	ctx := context.Background()
	s, err := wire(ctx, cfg, slots, log)
	if err != nil {
		slots.Close() //nolint:errcheck
		return err
	}
	defer s.Close()

	if len(args) > 0 {
		switch args[0] {
		case "login":
			if len(args) < 2 {
				return errors.New("usage: tuning login <username>")
			}
			fmt.Fprint(os.Stderr, "password: ")
			return runLogin(ctx, s, os.Stdout, args[1], os.Stdin)
		case "logout":
			return runLogout(ctx, s, os.Stdout)
		case "cart":
			return runCart(ctx, s, os.Stdout)
		default:
			printHelp(os.Stderr)
			return fmt.Errorf("unknown command %q", args[0])
		}
	}

	svc := s.services()
	p := tea.NewProgram(tui.New(svc), tea.WithAltScreen())
	unbind := tui.Bind(p, svc)
	defer unbind()
	if _, err := p.Run(); err != nil {
		logger.Errorw("tui_exited", "error", err)
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// readPassword takes the first line of r.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("empty password")
	}
	return pw, nil
}

func runLogin(ctx context.Context, s *stack, w io.Writer, username string, in io.Reader) error {
	pw, err := readPassword(in)
	if err != nil {
		return err
	}
	u, err := s.session.SignIn(ctx, client.Credentials{Username: username, Password: pw})
	if err != nil {
		logger.Errorw("cli_login_failed", "username", username, "error", err)
		if apiErr := client.AsAPIError(err); apiErr != nil && apiErr.Message != "" {
			return fmt.Errorf("sign in: %s", apiErr.Message)
		}
		return fmt.Errorf("sign in: %w", err)
	}
	fmt.Fprintf(w, "signed in as %s (@%s)\n", u.DisplayName(), u.Username)
	if n := s.cart.TotalItems(); n > 0 {
		fmt.Fprintf(w, "%d items waiting in your cart\n", n)
	}
	return nil
}

func runLogout(ctx context.Context, s *stack, w io.Writer) error {
	s.session.Initialize(ctx)
	if !s.session.IsAuthenticated() {
		// Drop stale cookies anyway.
		if err := s.persist.Forget(ctx); err != nil {
			return err
		}
		fmt.Fprintln(w, "not signed in")
		return nil
	}
	if err := s.session.SignOut(ctx); err != nil {
		s.log.Warn("logout_request_failed", zap.Error(err))
	}
	fmt.Fprintln(w, "signed out. "+signOff())
	return nil
}

func runCart(ctx context.Context, s *stack, w io.Writer) error {
	s.session.Initialize(ctx)
	items := s.cart.Items()
	logger.Debugw("cli_cart", "lines", len(items), "synced", s.cart.Authenticated())
	printCart(w, items, s.cart.Authenticated())
	return nil
}

func printCart(w io.Writer, items []domain.LineItem, synced bool) {
	if len(items) == 0 {
		fmt.Fprintln(w, "your cart is empty")
		return
	}
	where := "saved on this device"
	if synced {
		where = "synced with your account"
	}
	fmt.Fprintf(w, "cart (%s)\n\n", where)

	var total domain.Money
	count := 0
	for _, li := range items {
		name := li.Product.Name
		if li.Variant != nil && li.Variant.Label() != "" {
			name += " · " + li.Variant.Label()
		}
		fmt.Fprintf(w, "  %-36s %3d × %10s %12s\n", name, li.Quantity, li.UnitPrice().String(), li.Total().String())
		total = total.Add(li.Total())
		count += li.Quantity
	}
	fmt.Fprintf(w, "\n  %d items, total %s ₽\n", count, total.String())
}
