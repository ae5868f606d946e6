package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/noelbox/storefront/internal/app"
	"github.com/noelbox/storefront/internal/service/models/currency"
	"github.com/noelbox/storefront/internal/service/models/order"
	"github.com/noelbox/storefront/internal/service/services/ordersvc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and update stored orders",
	}

	cmd.AddCommand(ordersListCmd())
	cmd.AddCommand(ordersExportCmd())
	cmd.AddCommand(ordersMarkProcessedCmd())

	return cmd
}

func newOrderService() *ordersvc.OrderService {
	return ordersvc.MustNewOrderService(
		ordersvc.WithOrderRepository(app.MustNewOrderRepository()),
		ordersvc.WithStoreTimeout(viper.GetDuration("orders.read_timeout")),
	)
}

func ordersListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored orders, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetString("status")
			asJSON, _ := cmd.Flags().GetBool("json")

			items, err := newOrderService().ListOrders(cmd.Context(), order.QueryOrdersModel{Status: order.Status(status)})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(items)
			}

			return printOrders(cmd, items)
		},
	}

	cmd.Flags().StringP("status", "s", "all", "Filter: all, processed, pending")
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")

	return cmd
}

func printOrders(cmd *cobra.Command, items []order.StoredOrder) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HANDLE\tDATE\tEMAIL\tVARIANT\tQTY\tAMOUNT\tPROCESSED")
	for _, item := range items {
		o := item.Order
		cur, err := currency.ParseCurrency(o.Currency)
		if err != nil {
			cur = currency.Default
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			item.Handle, o.Date, o.EmailOrEmpty(), o.Meta(order.MetaVariantLabel),
			o.Meta(order.MetaQty), cur.FormatMinor(o.AmountTotal), o.Processed)
	}

	return w.Flush()
}

func ordersExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored order as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			csv, err := newOrderService().ExportCSV(cmd.Context())
			if err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("output")
			if out == "" || out == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), csv)

				return err
			}

			return os.WriteFile(out, []byte(csv), 0o600)
		},
	}

	cmd.Flags().StringP("output", "o", "-", "Output file, - for stdout")

	return cmd
}

func ordersMarkProcessedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-processed [handle]",
		Short: "Flag one stored order as processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := newOrderService().MarkProcessed(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) processed\n", args[0], o.ID)

			return err
		},
	}
}
