package s1_universe

import "github.com/wonny/quantsnap/internal/contracts"

// Universe names
const (
	WorldTopStocks = "world_top_stocks"
	SP500          = "sp500"
	SP500Live      = "sp500_live"
	TopETFs        = "top_etfs"
	PopularStocks  = "popular_stocks"
)

// builtinLists are used when no CSV override exists in the universe directory
var builtinLists = map[string][]contracts.UniverseMember{
	WorldTopStocks: {
		{Ticker: "AAPL", Name: "Apple Inc"},
		{Ticker: "MSFT", Name: "Microsoft Corporation"},
		{Ticker: "GOOGL", Name: "Alphabet Inc"},
		{Ticker: "AMZN", Name: "Amazon.com Inc"},
		{Ticker: "NVDA", Name: "NVIDIA Corporation"},
		{Ticker: "TSLA", Name: "Tesla Inc"},
		{Ticker: "META", Name: "Meta Platforms Inc"},
		{Ticker: "BRK-B", Name: "Berkshire Hathaway Inc"},
		{Ticker: "UNH", Name: "UnitedHealth Group Inc"},
		{Ticker: "JNJ", Name: "Johnson & Johnson"},
	},
	SP500: {
		{Ticker: "AAPL", Name: "Apple Inc"},
		{Ticker: "MSFT", Name: "Microsoft Corporation"},
		{Ticker: "GOOGL", Name: "Alphabet Inc"},
		{Ticker: "AMZN", Name: "Amazon.com Inc"},
		{Ticker: "TSLA", Name: "Tesla Inc"},
		{Ticker: "NVDA", Name: "NVIDIA Corporation"},
		{Ticker: "META", Name: "Meta Platforms Inc"},
		{Ticker: "NFLX", Name: "Netflix Inc"},
	},
	TopETFs: {
		{Ticker: "SPY", Name: "SPDR S&P 500 ETF"},
		{Ticker: "QQQ", Name: "Invesco QQQ Trust"},
		{Ticker: "IWM", Name: "iShares Russell 2000 ETF"},
		{Ticker: "VTI", Name: "Vanguard Total Stock Market ETF"},
		{Ticker: "VOO", Name: "Vanguard S&P 500 ETF"},
		{Ticker: "VEA", Name: "Vanguard FTSE Developed Markets ETF"},
		{Ticker: "VWO", Name: "Vanguard FTSE Emerging Markets ETF"},
		{Ticker: "BND", Name: "Vanguard Total Bond Market ETF"},
	},
	PopularStocks: {
		{Ticker: "TSLA", Name: "Tesla Inc"},
		{Ticker: "AAPL", Name: "Apple Inc"},
		{Ticker: "MSFT", Name: "Microsoft Corporation"},
		{Ticker: "GOOGL", Name: "Alphabet Inc"},
		{Ticker: "AMZN", Name: "Amazon.com Inc"},
		{Ticker: "NVDA", Name: "NVIDIA Corporation"},
		{Ticker: "META", Name: "Meta Platforms Inc"},
		{Ticker: "NFLX", Name: "Netflix Inc"},
		{Ticker: "AMD", Name: "Advanced Micro Devices Inc"},
		{Ticker: "CRM", Name: "Salesforce Inc"},
	},
}
