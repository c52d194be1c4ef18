package main

import (
	"fmt"

	"github.com/Yusufzhafir/tradeview/internal/engine"
	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/spf13/cobra"
)

var (
	totalPrice     string
	totalQuantity  string
	totalLeverage  int
	totalOrderType string
)

var totalCmd = &cobra.Command{
	Use:   "total",
	Short: "Print the order total for a price, quantity, leverage and order type",
	RunE: func(cmd *cobra.Command, args []string) error {
		orderType, err := model.ParseOrderType(totalOrderType)
		if err != nil {
			return err
		}
		total := engine.CalculateTotal(model.OrderInput{
			Price:     totalPrice,
			Quantity:  totalQuantity,
			Leverage:  totalLeverage,
			OrderType: orderType,
		})
		_, err = fmt.Fprintln(cmd.OutOrStdout(), total.DisplayTotal)
		return err
	},
}

func init() {
	totalCmd.Flags().StringVar(&totalPrice, "price", "", "order price")
	totalCmd.Flags().StringVar(&totalQuantity, "quantity", "", "order quantity")
	totalCmd.Flags().IntVar(&totalLeverage, "leverage", model.MIN_LEVERAGE, "leverage, clamped to [1,10]")
	totalCmd.Flags().StringVar(&totalOrderType, "type", "limit", "order type (market|limit|stop|stop_limit|trailing_stop|oco|iceberg)")
}
