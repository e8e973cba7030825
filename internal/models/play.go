package models

// PlayResult is returned per settled bet. It is not persisted as an entity;
// PlayRecord is the durable history row derived from it.
type PlayResult struct {
	SlotLabel      string `json:"slot"`
	WinAmount      int64  `json:"win"`
	IsJackpot      bool   `json:"is_jackpot"`
	JackpotAward   int64  `json:"jackpot_award"`
	Balance        int64  `json:"balance"`
	CumulativeWins int64  `json:"cumulative_wins"`
}

type PlayRecord struct {
	ID           string `json:"id" redis:"id"`
	UserID       string `json:"user_id" redis:"user_id"`
	Bet          int64  `json:"bet" redis:"bet"`
	SlotLabel    string `json:"slot" redis:"slot"`
	WinAmount    int64  `json:"win" redis:"win"`
	IsJackpot    bool   `json:"is_jackpot" redis:"is_jackpot"`
	JackpotAward int64  `json:"jackpot_award" redis:"jackpot_award"`
	BalanceAfter int64  `json:"balance_after" redis:"balance_after"`
	CreatedAt    int64  `json:"created_at" redis:"created_at"`
}
