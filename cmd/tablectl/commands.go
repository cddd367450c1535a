package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmeshcher/tableside/internal/apiclient"
	"github.com/mmeshcher/tableside/internal/backend"
	"github.com/mmeshcher/tableside/internal/billing"
	"github.com/mmeshcher/tableside/internal/board"
	"github.com/mmeshcher/tableside/internal/model"
	"github.com/mmeshcher/tableside/internal/pending"
)

type options struct {
	baseURL      string
	restaurantID string
	token        string
	timeout      time.Duration
	retries      int
	verbose      bool
}

// app собирает клиентов из флагов для одной команды.
type app struct {
	api     *backend.API
	board   *board.Board
	billing *billing.Service
	sess    *apiclient.Session
	logger  *zap.Logger
}

func (o *options) app() (*app, error) {
	if o.baseURL == "" || o.restaurantID == "" {
		return nil, errors.New("--base and --restaurant are required (or API_BASE_URL and RESTAURANT_ID)")
	}

	logger := zap.NewNop()
	if o.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = l
	}

	api := backend.New(apiclient.NewClient(o.baseURL, o.restaurantID, apiclient.Options{
		Timeout: o.timeout,
		Logger:  logger,
	}))
	tracker := pending.NewTracker(200*time.Millisecond, logger)
	b := board.New(api, tracker, logger, board.Intervals{}, o.retries)

	var sess *apiclient.Session
	if o.token != "" {
		sess = apiclient.NewSession("", o.token)
		b.SetSession(sess)
	}

	return &app{
		api:     api,
		board:   b,
		billing: billing.New(api, b, tracker, logger, o.retries),
		sess:    sess,
		logger:  logger,
	}, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	_ = godotenv.Load()

	opts := &options{}
	root := &cobra.Command{
		Use:           "tablectl",
		Short:         "Staff console for the restaurant floor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.baseURL, "base", "b", os.Getenv("API_BASE_URL"), "restaurant backend base URL")
	pf.StringVarP(&opts.restaurantID, "restaurant", "r", os.Getenv("RESTAURANT_ID"), "restaurant id")
	pf.StringVarP(&opts.token, "token", "t", os.Getenv("STAFF_TOKEN"), "backend access token")
	pf.DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	pf.IntVar(&opts.retries, "conflict-retries", 2, "retries on version conflict")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log requests")

	root.AddCommand(
		loginCmd(opts),
		tablesCmd(opts),
		ordersCmd(opts),
		advanceCmd(opts),
		billCmd(opts),
		finalizeCmd(opts),
		paidCmd(opts),
	)
	return root
}

func loginCmd(opts *options) *cobra.Command {
	var creds backend.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			sess, err := a.api.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Role, "role", apiclient.RoleStaff, "admin or staff")
	cmd.Flags().StringVar(&creds.PIN, "pin", "", "staff PIN")
	cmd.Flags().StringVar(&creds.Username, "username", "", "admin username")
	cmd.Flags().StringVar(&creds.Password, "password", "", "admin password")
	return cmd
}

func tablesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Show tables with occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			if err := a.board.RefreshTables(cmd.Context()); err != nil {
				return err
			}
			if err := a.board.RefreshOrders(cmd.Context()); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tID\tSTATE\tORDERS")
			for _, v := range a.board.Tables() {
				state := "free"
				if v.Occupied {
					state = "occupied"
				}
				if !v.Active {
					state = "inactive"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", v.Number, v.ID, state, len(v.Orders))
			}
			return w.Flush()
		},
	}
}

func ordersCmd(opts *options) *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List active orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}

			var orders []model.Order
			if history {
				orders, err = a.board.History(cmd.Context(), a.sess)
			} else {
				err = a.board.RefreshOrders(cmd.Context())
				orders = a.board.Orders()
			}
			if err != nil {
				return err
			}
			printOrders(cmd.OutOrStdout(), orders)
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "list finished orders instead")
	return cmd
}

func printOrders(out io.Writer, orders []model.Order) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tTABLE\tSTATUS\tAMOUNT\tPAYMENT\tNEXT")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%v\n", o.ID, o.TableNumber, o.Status, o.Amount, o.PaymentStatus, o.Status.Transitions())
	}
	_ = w.Flush()
}

func advanceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "advance ORDER STATUS",
		Short: "Move an order to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := model.OrderStatus(args[1])
			if !status.Known() {
				return fmt.Errorf("unknown status %q", args[1])
			}
			a, err := opts.app()
			if err != nil {
				return err
			}
			if err := a.board.RefreshOrders(cmd.Context()); err != nil {
				return err
			}
			o, err := a.board.UpdateOrderStatus(cmd.Context(), a.sess, args[0], status)
			if err != nil {
				return err
			}
			printOrders(cmd.OutOrStdout(), []model.Order{o})
			return nil
		},
	}
}

func printBill(out io.Writer, b model.Bill) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Bill %s (order %s) %s/%s v%d\n", b.ID, b.OrderID, b.Status, b.PaymentStatus, b.Version)
	for i, it := range b.Items {
		fmt.Fprintf(w, "%d\t%s\tx%d\t%.2f\n", i, it.Name, it.Qty, it.Price*float64(it.Qty))
	}
	p := b.Preview()
	fmt.Fprintf(w, "\tsubtotal\t\t%s\n", p.Subtotal.StringFixed(2))
	fmt.Fprintf(w, "\tdiscount\t\t-%s\n", p.DiscountAmount.StringFixed(2))
	fmt.Fprintf(w, "\tservice\t\t%s\n", p.ServiceChargeAmount.StringFixed(2))
	for _, t := range p.Taxes {
		fmt.Fprintf(w, "\t%s %.2f%%\t\t%.2f\n", t.Name, t.Rate, t.Amount)
	}
	fmt.Fprintf(w, "\textras\t\t%s\n", p.ExtrasTotal.StringFixed(2))
	fmt.Fprintf(w, "\ttotal\t\t%.2f\n", b.Total)
	_ = w.Flush()
}

func billAction(opts *options, use, short string, fn func(ctx context.Context, a *app, orderID string) (model.Bill, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app()
			if err != nil {
				return err
			}
			b, err := fn(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			printBill(cmd.OutOrStdout(), b)
			return nil
		},
	}
}

func billCmd(opts *options) *cobra.Command {
	return billAction(opts, "bill ORDER", "Show the bill of an order", func(ctx context.Context, a *app, orderID string) (model.Bill, error) {
		return a.billing.Fetch(ctx, a.sess, orderID)
	})
}

func finalizeCmd(opts *options) *cobra.Command {
	return billAction(opts, "finalize ORDER", "Finalize the bill of an order", func(ctx context.Context, a *app, orderID string) (model.Bill, error) {
		return a.billing.Finalize(ctx, a.sess, orderID)
	})
}

func paidCmd(opts *options) *cobra.Command {
	var method string
	cmd := billAction(opts, "paid ORDER", "Mark the bill of an order as paid", func(ctx context.Context, a *app, orderID string) (model.Bill, error) {
		return a.billing.MarkPaid(ctx, a.sess, orderID, method)
	})
	cmd.Flags().StringVar(&method, "method", "cash", "payment method")
	return cmd
}
