package types

// The structs in this file mirror tables owned by the external automation
// engine. Table and column names must match the engine schema exactly, so the
// database layer runs gorm with a naming strategy that keeps Go field names
// verbatim (see database.Open).

type TradeCondition struct {
	TradeConditionID     uint `gorm:"primaryKey;autoIncrement"`
	Name                 string
	RetryUntilExpiration int
}

func (TradeCondition) TableName() string { return "TradeCondition" }

type TradeConditionDetail struct {
	TradeConditionDetailID uint `gorm:"primaryKey;autoIncrement"`
	TradeConditionID       uint
	Group                  int
	Input                  string
	Operator               string
	Comparison             string
	ComparisonType         string
}

func (TradeConditionDetail) TableName() string { return "TradeConditionDetail" }

// TradeTemplate is one order template. Name is the natural key:
// "{SIDE} SPREAD ({HH:MM}) {PLAN}".
type TradeTemplate struct {
	TradeTemplateID uint `gorm:"primaryKey;autoIncrement"`
	Name            string
	IsDeleted       int
	TradeType       string

	TargetType     string
	TargetMin      float64
	TargetMax      float64
	LongType       string
	LongWidth      string
	LongMaxPremium float64
	QtyDefault     int

	FillAttempts   int
	FillWait       int
	FillAdjustment float64

	StopType              string
	StopMultiple          float64
	StopOffset            float64
	StopTrigger           int
	StopOrderType         string
	StopTargetType        string
	StopRelOffset         float64
	StopRelLimit          float64
	StopLimitOffset       float64
	StopLimitMarketOffset float64

	OrderIDProfitTarget string
	ProfitTargetType    *string
	ProfitTarget        *float64

	Adjustment1Type         string
	Adjustment1             float64
	Adjustment1ChangeType   string
	Adjustment1Change       float64
	Adjustment1ChangeOffset float64
	Adjustment1Hour         int
	Adjustment1Minute       int
	Adjustment2Type         string
	Adjustment2             float64
	Adjustment2ChangeType   string
	Adjustment2Change       float64
	Adjustment2ChangeOffset float64
	Adjustment2Hour         int
	Adjustment2Minute       int
	Adjustment3Type         string
	Adjustment3             float64
	Adjustment3ChangeType   string
	Adjustment3Change       float64
	Adjustment3ChangeOffset float64
	Adjustment3Hour         int
	Adjustment3Minute       int

	ExitHour           int
	ExitMinute         int
	LowerTarget        int
	StopBasis          string
	StopRel            string
	StopRelITM         float64
	StopRelITMMinutes  int
	LongMaxWidth       int
	ExitMinutesInTrade int
	Preference         string

	ReEnterClose            int
	ReEnterStop             int
	ReEnterProfitTarget     int
	ReEnterDelay            int
	ReEnterExpirationHour   int
	ReEnterExpirationMinute int
	ReEnterMaxEntries       int
	DisableNarrowerLong     int
	Strategy                string
	MinOTM                  float64

	ShortPutTarget      float64
	ShortPutTargetType  string
	ShortPutDTE         int
	ShortCallTarget     float64
	ShortCallTargetType string
	ShortCallDTE        int
	LongPutTarget       float64
	LongPutTargetType   string
	LongPutDTE          int
	LongCallTarget      float64
	LongCallTargetType  string
	LongCallDTE         int
	ExitDTE             int
	ExtendedHourStop    int

	TargetTypeCall string
	TargetMinCall  float64
	TargetMaxCall  float64
	PreferenceCall string
	MinOTMCall     float64
	ExitOrderLimit int
	PutRatio       int
	CallRatio      int
	LongMinPremium *float64

	ProfitTargetTradePct  float64
	ProfitTarget2         float64
	ProfitTarget2TradePct float64
	ProfitTarget3         float64
	ProfitTarget3TradePct float64
	ProfitTarget4         float64
	ProfitTarget4TradePct float64

	Adjustment1OrderType string
	Adjustment2OrderType string
	Adjustment3OrderType string

	ReEnterCloseTemplateID         int
	ReEnterStopTemplateID          int
	ReEnterProfitTargetTemplateID  int
	ReEnterCloseTemplateID2        int
	ReEnterStopTemplateID2         int
	ReEnterProfitTargetTemplateID2 int

	MaxEntryPrice float64
	MinEntryPrice float64
}

func (TradeTemplate) TableName() string { return "TradeTemplate" }

// ScheduleMaster binds a template to an account, a time of day and a
// condition. IsActive is what the engine looks at before firing.
type ScheduleMaster struct {
	ScheduleMasterID  uint `gorm:"primaryKey;autoIncrement"`
	Account           string
	TradeTemplateID   uint
	ScheduleType      string
	QtyOverride       int
	Hour              int
	Minute            int
	Second            int
	ExpirationMinutes int
	IsActive          int
	ScheduleGroupID   int
	Condition         string
	Strategy          string
	DisplayStrategy   string
	TradeConditionID  uint
	DisplayCondition  string
	DayMonday         int
	DayTuesday        int
	DayWednesday      int
	DayThursday       int
	DayFriday         int
	DaySaturday       int
	DaySunday         int
	QtyType           string
	QtyAllocation     float64
	QtyAllocationMax  int
}

func (ScheduleMaster) TableName() string { return "ScheduleMaster" }

// DailyLog is written by the engine during the session. LogDate is in .NET
// ticks (100ns since 0001-01-01 UTC).
type DailyLog struct {
	DailyLogID  uint `gorm:"primaryKey;autoIncrement"`
	LogDate     int64
	PremiumSold float64
	PL          float64
}

func (DailyLog) TableName() string { return "DailyLog" }
