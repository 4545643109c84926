package game

import (
	"context"
	"io/fs"

	"github.com/google/uuid"
	"github.com/wfunc/idle-game/internal/catalog"
	"github.com/wfunc/idle-game/internal/clock"
	"github.com/wfunc/idle-game/internal/config"
	"github.com/wfunc/idle-game/internal/event"
	"github.com/wfunc/idle-game/internal/logger"
	"github.com/wfunc/idle-game/internal/models"
	"github.com/wfunc/idle-game/internal/save"
	"github.com/wfunc/idle-game/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options 引擎装配选项
// 留空的依赖按配置自建：时钟用真实时钟，存储按数据库配置打开。
// 测试注入ManualClock与MemoryStore即可获得完全确定性的引擎。
type Options struct {
	// ConfigManager 配置管理器，nil时使用内置默认配置
	ConfigManager *config.Manager
	// Logger 日志器，nil时取全局日志器
	Logger *zap.Logger
	// Clock 壁钟，nil时使用真实时钟
	Clock clock.Clock
	// Store 存档存储，nil时按配置打开数据库
	Store storage.Store
	// Defaults 各域的内置默认存档（文件名为<域名>.json），可为nil
	Defaults fs.FS
}

// Engine 进度与持久化引擎
// 嵌入式库：宿主在自己的更新循环里驱动Update，挂起时调用
// Suspend强制落盘。除序列化快照外，引擎的全部操作都必须在
// 宿主的同一条逻辑更新线程上执行，子系统之间因此无须加锁。
type Engine struct {
	cfg       *config.Config
	configMgr *config.Manager
	logger    *zap.Logger
	clk       clock.Clock
	sched     *clock.Scheduler
	bus       *event.Bus
	store     storage.Store
	db        *gorm.DB // 引擎自己打开的数据库，Close时释放
	saves     *save.Manager
	cat       *catalog.Catalog

	player    models.PlayerState
	hole      models.BlackHoleState
	resources models.ResourceCounts
	boostSt   models.BoostState
	meta      models.MetaState

	economy    *Economy
	inventory  *Inventory
	blackhole  *BlackHole
	characters *Characters
	goals      *GoalEngine
	boost      *Boost

	// 本次启动用默认状态初始化的域，协调器就绪后补标脏落盘
	fresh  []string
	closed bool
}

// New 装配并启动引擎
// 依次：打开存储、加载目录、逐域引导加载（缺失/损坏回退默认并
// 修复不变式）、装配子系统、注册各域的存档协调器，最后启动
// 目标自动巡检并对齐加速效果的持久化截止时刻。
func New(ctx context.Context, opts Options) (*Engine, error) {
	cfg := config.Default()
	if opts.ConfigManager != nil {
		cfg = opts.ConfigManager.Get()
	}
	lg := opts.Logger
	if lg == nil {
		lg = logger.GetLogger()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	e := &Engine{
		cfg:       cfg,
		configMgr: opts.ConfigManager,
		logger:    lg,
		clk:       clk,
		sched:     clock.NewScheduler(clk, lg),
		bus:       event.NewBus(lg),
	}

	if err := e.openStore(opts.Store); err != nil {
		return nil, err
	}

	cat, err := catalog.Load(&cfg.Catalog, lg)
	if err != nil {
		return nil, err
	}
	e.cat = cat

	e.saves = save.NewManager(lg)
	loader := storage.NewBootstrapLoader(e.store, opts.Defaults, lg)
	e.loadDomains(ctx, loader)
	e.assemble(ctx, loader)
	e.registerCoordinators()
	e.repair()

	e.goals.Start()
	e.boost.Resync()
	e.watchConfig()

	lg.Info("引擎启动完成",
		zap.String("install_id", e.meta.InstallID),
		zap.Int("schema_version", e.meta.SchemaVersion),
		zap.Int("missions", len(e.goals.Missions())),
		zap.Int64("gold", e.player.Gold))
	return e, nil
}

// openStore 打开存档存储
// 注入了Store直接用；否则按配置打开数据库，并按需叠加审计与加封。
func (e *Engine) openStore(injected storage.Store) error {
	if injected != nil {
		e.store = injected
		return nil
	}

	db, err := storage.Open(&e.cfg.Database, e.logger)
	if err != nil {
		return err
	}
	e.db = db

	var audit storage.AuditRepository
	if e.cfg.Save.Audit {
		audit = storage.NewAuditRepository(db)
	}
	var store storage.Store = storage.NewGormStore(db, e.logger, audit)

	if e.cfg.Save.Seal.Enabled {
		key, err := storage.ParseSealKey(e.cfg.Save.Seal.Key)
		if err != nil {
			return err
		}
		sealed, err := storage.NewCipherStore(store, key)
		if err != nil {
			return err
		}
		store = sealed
		e.logger.Info("存档加封已启用")
	}
	e.store = store
	return nil
}

// loadDomains 逐域引导加载
// 存储缺失或读取失败回退内置默认，解码失败同样回退。对引擎
// 来说两者没有区别，都意味着该域从默认状态重新开始。
func (e *Engine) loadDomains(ctx context.Context, loader *storage.BootstrapLoader) {
	if !e.decodeDomain(ctx, loader, models.DomainMeta, &e.meta) {
		e.meta = models.MetaState{
			InstallID:     uuid.NewString(),
			SchemaVersion: models.SchemaVersion,
			CreatedAtMs:   e.clk.NowMs(),
		}
		e.markFresh(models.DomainMeta)
		e.logger.Info("首次运行，生成安装标识",
			zap.String("install_id", e.meta.InstallID))
	}

	if !e.decodeDomain(ctx, loader, models.DomainEconomy, &e.player) {
		speed := e.cfg.Game.BaseSpeed
		if def, ok := e.cat.Character(e.cfg.Game.InitialCharacterID); ok && def.BaseSpeed > 0 {
			speed = def.BaseSpeed
		}
		e.player = models.PlayerState{
			Gold:               e.cfg.Game.InitialGold,
			CurrentCharacterID: e.cfg.Game.InitialCharacterID,
			Speed:              speed,
		}
		e.markFresh(models.DomainEconomy)
	}

	if !e.decodeDomain(ctx, loader, models.DomainBlackHole, &e.hole) {
		e.hole = models.BlackHoleState{
			Income:     e.cfg.Game.BaseIncome,
			StorageMax: e.cfg.Game.BaseStorageMax,
		}
		e.markFresh(models.DomainBlackHole)
	}

	if !e.decodeDomain(ctx, loader, models.DomainResources, &e.resources) {
		e.resources = make(models.ResourceCounts, e.cfg.Game.ResourceKinds)
		e.markFresh(models.DomainResources)
	}

	if !e.decodeDomain(ctx, loader, models.DomainBoost, &e.boostSt) {
		e.boostSt = models.BoostState{
			Percent:     e.cfg.Boost.Percent,
			DurationSec: e.cfg.Boost.Duration.Seconds(),
			CooldownSec: e.cfg.Boost.Cooldown.Seconds(),
			Unlocked:    e.cfg.Boost.Unlocked,
		}
		e.markFresh(models.DomainBoost)
	}
}

// markFresh 记下用默认状态起步的域
func (e *Engine) markFresh(domain string) {
	e.fresh = append(e.fresh, domain)
}

// decodeDomain 读取并解码一个域，成败都不中断启动
func (e *Engine) decodeDomain(ctx context.Context, loader *storage.BootstrapLoader, domain string, v interface{}) bool {
	raw := loader.LoadOrDefault(ctx, domain)
	if raw == nil {
		return false
	}
	if err := models.DecodeEnvelope(domain, raw, v); err != nil {
		e.logger.Warn("存档解码失败，回退默认状态",
			zap.String("domain", domain),
			zap.Error(err))
		return false
	}
	return true
}

// assemble 装配子系统并完成两段式接线
func (e *Engine) assemble(ctx context.Context, loader *storage.BootstrapLoader) {
	e.economy = NewEconomy(&e.player, e.saves, e.bus, e.logger)
	e.inventory = NewInventory(e.resources, &e.hole, e.saves, e.bus, e.logger)
	e.blackhole = NewBlackHole(&e.hole, e.cat, e.inventory, e.saves, e.bus, e.logger)

	// 任务域：目录定义与持久化进度合并
	var persisted []models.MissionRecord
	if raw := loader.LoadOrDefault(ctx, models.DomainMissions); raw != nil {
		if err := models.DecodeEnvelope(models.DomainMissions, raw, &persisted); err != nil {
			e.logger.Warn("任务存档解码失败，按零进度处理", zap.Error(err))
			persisted = nil
		}
	}
	if persisted == nil {
		e.markFresh(models.DomainMissions)
	}
	records := e.cat.MergeMissions(persisted)

	e.goals = NewGoalEngine(records, e.saves, e.bus, e.clk, e.sched,
		e.cfg.Goal.AutoTickInterval, e.logger)
	e.goals.BindSources(TickSources{
		Gold:      e.economy.Gold,
		Speed:     e.economy.CurrentSpeed,
		Distance:  e.economy.DistanceKm,
		Resources: e.inventory.Counts,
	}, e.economy.AddGold)

	var roster []models.CharacterState
	if raw := loader.LoadOrDefault(ctx, models.DomainCharacters); raw != nil {
		if err := models.DecodeEnvelope(models.DomainCharacters, raw, &roster); err != nil {
			e.logger.Warn("角色存档解码失败，回退默认名单", zap.Error(err))
			roster = nil
		}
	}
	if len(roster) == 0 && e.cfg.Game.InitialCharacterID > 0 {
		roster = []models.CharacterState{{ID: e.cfg.Game.InitialCharacterID, Level: 1}}
		e.markFresh(models.DomainCharacters)
	}
	e.characters = NewCharacters(roster, e.cat, e.economy, e.saves, e.bus, e.logger)

	e.boost = NewBoost(&e.boostSt, e.clk, e.sched, e.economy, e.saves, e.bus, e.logger)

	e.economy.bindGoals(e.goals)
	e.inventory.bindGoals(e.goals)
	e.blackhole.bindGoals(e.goals)
	e.characters.bindGoals(e.goals)
	e.boost.bindGoals(e.goals)
}

// registerCoordinators 为每个存档域注册去抖协调器
func (e *Engine) registerCoordinators() {
	type domainSerializer struct {
		domain    string
		serialize save.Serializer
	}
	serializers := []domainSerializer{
		{models.DomainMeta, func() ([]byte, error) {
			return models.EncodeEnvelope(models.DomainMeta, e.meta)
		}},
		{models.DomainEconomy, func() ([]byte, error) {
			return models.EncodeEnvelope(models.DomainEconomy, e.economy.snapshot())
		}},
		{models.DomainBlackHole, func() ([]byte, error) {
			return models.EncodeEnvelope(models.DomainBlackHole, e.blackhole.snapshot())
		}},
		{models.DomainResources, func() ([]byte, error) {
			return models.EncodeEnvelope(models.DomainResources, e.inventory.snapshot())
		}},
		{models.DomainBoost, func() ([]byte, error) {
			return models.EncodeEnvelope(models.DomainBoost, e.boost.snapshot())
		}},
		{models.DomainMissions, func() ([]byte, error) {
			return models.EncodeEnvelope(models.DomainMissions, e.goals.Missions())
		}},
		{models.DomainCharacters, func() ([]byte, error) {
			return models.EncodeEnvelope(models.DomainCharacters, e.characters.snapshot())
		}},
	}
	for _, ds := range serializers {
		e.saves.Register(save.NewCoordinator(ds.domain, e.store, e.sched,
			e.cfg.Save.DebounceFor(ds.domain), ds.serialize, e.logger))
	}
}

// repair 加载后的不变式修复
// 损坏的存档不让它传播：能修的修掉并标脏重写，修不了的已在
// 加载阶段回退默认。用默认状态起步的域在这里补标脏，让首次
// 运行的存档尽快成形。
func (e *Engine) repair() {
	for _, domain := range e.fresh {
		e.saves.MarkDirty(domain)
	}
	e.fresh = nil

	if e.meta.InstallID == "" {
		e.meta.InstallID = uuid.NewString()
		e.saves.MarkDirty(models.DomainMeta)
	}
	if e.meta.SchemaVersion == 0 {
		e.meta.SchemaVersion = models.SchemaVersion
		e.saves.MarkDirty(models.DomainMeta)
	}
	if e.meta.CreatedAtMs == 0 {
		e.meta.CreatedAtMs = e.clk.NowMs()
		e.saves.MarkDirty(models.DomainMeta)
	}

	if e.player.Gold < 0 {
		e.player.Gold = 0
		e.saves.MarkDirty(models.DomainEconomy)
	}
	if e.player.DistanceKm < 0 {
		e.player.DistanceKm = 0
		e.saves.MarkDirty(models.DomainEconomy)
	}
	if e.player.Speed <= 0 {
		e.player.Speed = e.cfg.Game.BaseSpeed
		e.saves.MarkDirty(models.DomainEconomy)
	}

	if e.hole.StorageMax <= 0 {
		e.hole.StorageMax = e.cfg.Game.BaseStorageMax
		e.saves.MarkDirty(models.DomainBlackHole)
	}
	if e.hole.Income <= 0 {
		e.hole.Income = e.cfg.Game.BaseIncome
		e.saves.MarkDirty(models.DomainBlackHole)
	}
	// 档位数值以目录为准，旧存档里的数值可能来自过期的档位表
	if up, ok := e.cat.StorageUpgrade(e.hole.StorageLevel); ok && e.hole.StorageMax != up.StorageMax {
		e.hole.StorageMax = up.StorageMax
		e.saves.MarkDirty(models.DomainBlackHole)
	}
	if up, ok := e.cat.IncomeUpgrade(e.hole.IncomeLevel); ok && e.hole.Income != up.Income {
		e.hole.Income = up.Income
		e.saves.MarkDirty(models.DomainBlackHole)
	}

	// 资源种类数跟随配置补齐，负数计数清零
	grown := e.resources.EnsureKinds(e.cfg.Game.ResourceKinds)
	if len(grown) != len(e.resources) {
		e.resources = grown
		e.inventory.counts = grown
		e.saves.MarkDirty(models.DomainResources)
	}
	for i, c := range e.inventory.counts {
		if c < 0 {
			e.inventory.counts[i] = 0
			e.saves.MarkDirty(models.DomainResources)
		}
	}

	if e.boostSt.DurationSec <= 0 {
		e.boostSt.DurationSec = e.cfg.Boost.Duration.Seconds()
		e.saves.MarkDirty(models.DomainBoost)
	}
	if e.boostSt.CooldownSec < 0 {
		e.boostSt.CooldownSec = e.cfg.Boost.Cooldown.Seconds()
		e.saves.MarkDirty(models.DomainBoost)
	}
	if e.boostSt.Percent <= 0 {
		e.boostSt.Percent = e.cfg.Boost.Percent
		e.saves.MarkDirty(models.DomainBoost)
	}

	// 已领取的任务必须算已完成
	repaired := 0
	for i := range e.goals.records {
		if e.goals.records[i].Repair() {
			repaired++
		}
	}
	if repaired > 0 {
		e.saves.MarkDirty(models.DomainMissions)
		e.logger.Warn("修复了非法任务状态", zap.Int("repaired", repaired))
	}

	// 当前角色必须在已拥有名单里
	if e.characters.ensureOwned(e.player.CurrentCharacterID) {
		e.saves.MarkDirty(models.DomainCharacters)
		e.logger.Warn("当前角色不在名单中，已补入",
			zap.Int("character_id", e.player.CurrentCharacterID))
	}
}

// watchConfig 订阅配置热更新
// fsnotify的回调在后台协程触发，经调度器转到宿主线程再应用。
func (e *Engine) watchConfig() {
	if e.configMgr == nil {
		return
	}
	e.configMgr.Watch(func(cfg *config.Config) {
		e.sched.Schedule(0, func() {
			e.cfg = cfg
			e.saves.ApplyConfig(&cfg.Save)
			e.goals.SetTickInterval(cfg.Goal.AutoTickInterval)
			e.logger.Info("引擎配置热更新完成",
				zap.Duration("debounce_interval", cfg.Save.DebounceInterval),
				zap.Duration("auto_tick_interval", cfg.Goal.AutoTickInterval))
		})
	})
}

// Update 驱动一个引擎tick
// 宿主每帧调用：执行到期的定时任务（去抖落盘、加速结算、目标
// 巡检），然后把本tick累积的任务变更与聚合信号一次性广播出去。
func (e *Engine) Update() {
	if e.closed {
		return
	}
	e.sched.Drain()
	e.goals.FlushChanged()
	e.bus.Flush()
}

// Suspend 挂起（APP切后台/显式存档点）
// 取消在途的去抖窗口并把所有脏域并发强制落盘。进程随时可能
// 被杀，这次落盘就是数据安全边界。
func (e *Engine) Suspend(ctx context.Context) error {
	if e.closed {
		return nil
	}
	e.goals.FlushChanged()
	e.bus.Flush()
	return e.saves.FlushAll(ctx)
}

// Resume 从挂起恢复
// 重置游玩时长计时基线（挂起期间不计入），并对齐加速效果：
// 截止时刻已过的立即结算，未过的按剩余时间续跑。
func (e *Engine) Resume() {
	if e.closed {
		return
	}
	e.goals.ResetTickBaseline()
	e.boost.Resync()
}

// Close 关闭引擎
// 停掉定时任务，末次全量落盘，释放引擎自己打开的数据库。
func (e *Engine) Close(ctx context.Context) error {
	if e.closed {
		return nil
	}
	e.closed = true

	e.goals.Stop()
	e.boost.stop()
	e.goals.FlushChanged()
	e.bus.Flush()

	err := e.saves.FlushAll(ctx)
	if e.db != nil {
		if cerr := storage.Close(e.db); cerr != nil && err == nil {
			err = cerr
		}
	}
	e.logger.Info("引擎已关闭", zap.Error(err))
	return err
}

// Economy 经济子系统
func (e *Engine) Economy() *Economy { return e.economy }

// Inventory 资源背包子系统
func (e *Engine) Inventory() *Inventory { return e.inventory }

// BlackHole 黑洞子系统
func (e *Engine) BlackHole() *BlackHole { return e.blackhole }

// Characters 角色子系统
func (e *Engine) Characters() *Characters { return e.characters }

// Goals 目标引擎
func (e *Engine) Goals() *GoalEngine { return e.goals }

// Boost 加速控制器
func (e *Engine) Boost() *Boost { return e.boost }

// Bus 信号总线
func (e *Engine) Bus() *event.Bus { return e.bus }

// Catalog 静态目录
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Meta 存档元信息
func (e *Engine) Meta() models.MetaState { return e.meta }

// DirtyDomains 当前未落盘的存档域（调试与测试用）
func (e *Engine) DirtyDomains() []string { return e.saves.DirtyDomains() }

// FlushDomain 强制落盘单个域（显式存档点）
func (e *Engine) FlushDomain(ctx context.Context, domain string) error {
	return e.saves.Flush(ctx, domain)
}
