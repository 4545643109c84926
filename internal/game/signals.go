package game

// 玩法信号的目标键
// 信号广播式下发：多数任务匹配不到多数信号，匹配不到的直接忽略。
const (
	// KeyGold 金币：累计型任务收入账，达到型任务看实时余额
	KeyGold = "gold"
	// KeyGoldSpent 花费金币的次数
	KeyGoldSpent = "gold_spent"
	// KeySpeed 当前速度（含加速倍率）
	KeySpeed = "speed"
	// KeyDistance 累计里程（公里）
	KeyDistance = "distance_km"
	// KeyPlayTime 累计游玩时长（秒），由自动巡检累加
	KeyPlayTime = "play_time"
	// KeyResourceCollected 资源收集总数
	KeyResourceCollected = "resource_collected"
	// KeyCharactersUnlocked 已解锁角色数
	KeyCharactersUnlocked = "characters_unlocked"
	// KeyBoostUnlocked 加速功能解锁
	KeyBoostUnlocked = "boost_unlocked"
	// KeyStorageLevel 仓库等级
	KeyStorageLevel = "storage_level"
	// KeyIncomeLevel 收益等级
	KeyIncomeLevel = "income_level"
)
