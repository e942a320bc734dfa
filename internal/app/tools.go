package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
	"github.com/bobmcallan/bolsa/internal/services/tradingday"
)

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	ms := a.MarketService
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createMarketSnapshotTool(), handleMarketSnapshot(ms, logger))
	s.AddTool(createLatestSnapshotTool(), handleLatestSnapshot(ms, logger))
	s.AddTool(createSymbolHistoryTool(), handleSymbolHistory(ms, logger))
	s.AddTool(createIndexHistoryTool(), handleIndexHistory(ms, logger))
	s.AddTool(createTradingDayTool(), handleTradingDay())
	s.AddTool(createCacheStatsTool(), handleCacheStats(ms, logger))
	s.AddTool(createExchangeRateTool(), handleExchangeRate(a.FXService, logger))
}

const dateHint = "Date as YYYYMMDD or YYYY-MM-DD"

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the Bolsa server version and status. Use this to verify connectivity."),
	)
}

// createMarketSnapshotTool returns the market_snapshot tool definition
func createMarketSnapshotTool() mcp.Tool {
	return mcp.NewTool("market_snapshot",
		mcp.WithDescription("Get every symbol's trading result and the general index for one session date."),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description(dateHint),
		),
	)
}

// createLatestSnapshotTool returns the latest_snapshot tool definition
func createLatestSnapshotTool() mcp.Tool {
	return mcp.NewTool("latest_snapshot",
		mcp.WithDescription("Find the most recent session with data on or before an anchor date (default: today)."),
		mcp.WithString("anchor",
			mcp.Description(dateHint),
		),
	)
}

// createSymbolHistoryTool returns the symbol_history tool definition
func createSymbolHistoryTool() mcp.Tool {
	return mcp.NewTool("symbol_history",
		mcp.WithDescription("Get a symbol's daily records over a date range with return, volatility and daily move statistics."),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Ticker symbol (e.g., 'BNC', 'MVZ.A')"),
		),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description(dateHint),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description(dateHint),
		),
	)
}

// createIndexHistoryTool returns the index_history tool definition
func createIndexHistoryTool() mcp.Tool {
	return mcp.NewTool("index_history",
		mcp.WithDescription("Get the general index over a date range, adjusted for the currency redenomination, with statistics."),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description(dateHint),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description(dateHint),
		),
	)
}

// createTradingDayTool returns the trading_day tool definition
func createTradingDayTool() mcp.Tool {
	return mcp.NewTool("trading_day",
		mcp.WithDescription("Map a calendar date to its trading day (weekends roll back to Friday)."),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description(dateHint),
		),
	)
}

// createCacheStatsTool returns the cache_stats tool definition
func createCacheStatsTool() mcp.Tool {
	return mcp.NewTool("cache_stats",
		mcp.WithDescription("Get store counts and cache accounting (entries, hit rate, most used queries)."),
	)
}

// createExchangeRateTool returns the exchange_rate tool definition
func createExchangeRateTool() mcp.Tool {
	return mcp.NewTool("exchange_rate",
		mcp.WithDescription("Get the official dollar rate for a date, falling back to the closest earlier published rate."),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description(dateHint),
		),
	)
}

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("Bolsa MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit())
		return textResult(result), nil
	}
}

// handleMarketSnapshot implements the market_snapshot tool
func handleMarketSnapshot(marketService interfaces.MarketService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date, errResult := requireDate(request, "date")
		if errResult != nil {
			return errResult, nil
		}

		day, err := marketService.Snapshot(ctx, date)
		if err != nil {
			logger.Error().Err(err).Str("date", date.String()).Msg("Snapshot failed")
			return errorResult(fmt.Sprintf("Snapshot error: %v", err)), nil
		}
		return textResult(formatDay(day)), nil
	}
}

// handleLatestSnapshot implements the latest_snapshot tool
func handleLatestSnapshot(marketService interfaces.MarketService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var anchor models.Date
		if raw := request.GetString("anchor", ""); raw != "" {
			d, err := models.ParseDate(raw)
			if err != nil {
				return errorResult("Error: anchor must be YYYYMMDD or YYYY-MM-DD"), nil
			}
			anchor = d
		}

		latest, err := marketService.LatestSnapshot(ctx, anchor)
		if err != nil {
			logger.Error().Err(err).Str("anchor", anchor.String()).Msg("Latest snapshot failed")
			return errorResult(fmt.Sprintf("Latest snapshot error: %v", err)), nil
		}
		if !latest.Found {
			return textResult(fmt.Sprintf("No session data found within the lookback window before %s (%d dates inspected).",
				latest.Anchor.Display(), latest.Inspected)), nil
		}
		return textResult(formatDay(latest.Day)), nil
	}
}

// handleSymbolHistory implements the symbol_history tool
func handleSymbolHistory(marketService interfaces.MarketService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, err := request.RequireString("symbol")
		if err != nil || symbol == "" {
			return errorResult("Error: symbol parameter is required"), nil
		}
		from, errResult := requireDate(request, "from")
		if errResult != nil {
			return errResult, nil
		}
		to, errResult := requireDate(request, "to")
		if errResult != nil {
			return errResult, nil
		}

		h, err := marketService.SymbolHistory(ctx, symbol, from, to)
		if err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("Symbol history failed")
			return errorResult(fmt.Sprintf("History error: %v", err)), nil
		}
		return textResult(formatSymbolHistory(h)), nil
	}
}

// handleIndexHistory implements the index_history tool
func handleIndexHistory(marketService interfaces.MarketService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		from, errResult := requireDate(request, "from")
		if errResult != nil {
			return errResult, nil
		}
		to, errResult := requireDate(request, "to")
		if errResult != nil {
			return errResult, nil
		}

		h, err := marketService.IndexHistory(ctx, from, to)
		if err != nil {
			logger.Error().Err(err).Msg("Index history failed")
			return errorResult(fmt.Sprintf("Index error: %v", err)), nil
		}
		return textResult(formatIndexHistory(h)), nil
	}
}

// handleTradingDay implements the trading_day tool
func handleTradingDay() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date, errResult := requireDate(request, "date")
		if errResult != nil {
			return errResult, nil
		}
		trading := tradingday.ResolveTradingDay(date)
		return textResult(fmt.Sprintf("%s (%s) -> trading day %s (%s)",
			date.Display(), date.Weekday(), trading.Display(), trading.Weekday())), nil
	}
}

// handleCacheStats implements the cache_stats tool
func handleCacheStats(marketService interfaces.MarketService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := marketService.Stats(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Stats failed")
			return errorResult(fmt.Sprintf("Stats error: %v", err)), nil
		}
		return textResult(formatStats(stats)), nil
	}
}

// handleExchangeRate implements the exchange_rate tool
func handleExchangeRate(fxService interfaces.FXService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date, errResult := requireDate(request, "date")
		if errResult != nil {
			return errResult, nil
		}

		rate, err := fxService.RateFor(ctx, date)
		if errors.Is(err, models.ErrNotFound) {
			return textResult(fmt.Sprintf("No exchange rate published on or before %s.", date.Display())), nil
		}
		if err != nil {
			logger.Error().Err(err).Str("date", date.String()).Msg("Exchange rate lookup failed")
			return errorResult(fmt.Sprintf("Exchange rate error: %v", err)), nil
		}

		text := fmt.Sprintf("**Rate:** Bs. %s per USD\n**Published:** %s\n", formatNumber(rate.Rate, 4), rate.Date.Display())
		if rate.Date != date {
			text += fmt.Sprintf("_No rate on %s; showing the closest earlier one._\n", date.Display())
		}
		return textResult(text), nil
	}
}

// Helper functions

func requireDate(request mcp.CallToolRequest, name string) (models.Date, *mcp.CallToolResult) {
	raw, err := request.RequireString(name)
	if err != nil || raw == "" {
		return "", errorResult(fmt.Sprintf("Error: %s parameter is required", name))
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return "", errorResult(fmt.Sprintf("Error: %s must be YYYYMMDD or YYYY-MM-DD", name))
	}
	return d, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
