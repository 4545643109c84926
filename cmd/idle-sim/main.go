package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/wfunc/idle-game/api"
	"github.com/wfunc/idle-game/internal/config"
	"github.com/wfunc/idle-game/internal/logger"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		duration    = flag.Duration("duration", 30*time.Second, "模拟时长")
		frame       = flag.Duration("frame", 50*time.Millisecond, "模拟帧间隔")
		seed        = flag.Int64("seed", 0, "随机种子，0取当前时间")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}
	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	// 装配引擎（配置、日志、数据库都按配置文件走）
	ctx := context.Background()
	progress, err := api.New(ctx, *configPath)
	if err != nil {
		fmt.Printf("引擎装配失败: %v\n", err)
		os.Exit(1)
	}

	lg := logger.GetLogger()
	printStartInfo(config.Default(), progress.InstallID(), *seed)

	// 监听退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	deadline := time.After(*duration)
	ticker := time.NewTicker(*frame)
	defer ticker.Stop()

	statusEvery := time.NewTicker(2 * time.Second)
	defer statusEvery.Stop()

	lg.Info("模拟开始",
		zap.Duration("duration", *duration),
		zap.Duration("frame", *frame),
		zap.Int64("seed", *seed))

	frames := 0
loop:
	for {
		select {
		case sig := <-sigCh:
			lg.Info("收到退出信号", zap.String("signal", sig.String()))
			break loop
		case <-deadline:
			lg.Info("模拟时长已到")
			break loop
		case <-statusEvery.C:
			printStatus(progress)
		case <-ticker.C:
			simulateFrame(progress, rng, frame.Seconds())
			progress.Update()
			frames++
		}
	}

	// 挂起落盘后关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := progress.Suspend(shutdownCtx); err != nil {
		lg.Error("挂起落盘失败", zap.Error(err))
	}
	if err := progress.Close(shutdownCtx); err != nil {
		lg.Error("引擎关闭失败", zap.Error(err))
		os.Exit(1)
	}

	printSummary(progress, frames)
	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}
}

// simulateFrame 模拟一帧玩法输入
// 按当前速度推进里程、按收益入账金币、随机捡资源，
// 任务完成后自动领奖，加速解锁后伺机激活。
func simulateFrame(p *api.ProgressAPI, rng *rand.Rand, dt float64) {
	view := p.Player()

	p.AdvanceDistance(view.Speed * dt / 60)
	p.AddGold(int64(view.Income*view.Speed*dt*20) + 1)

	if rng.Float64() < 0.3 {
		p.Collect(rng.Intn(8), int64(1+rng.Intn(3)))
	}

	// 资源攒够就升级，材料不足的失败直接忽略
	if err := p.UpgradeStorage(); err == nil {
		fmt.Println("🕳️ 仓库升级成功")
	}
	if err := p.UpgradeIncome(); err == nil {
		fmt.Println("📈 收益升级成功")
	}

	for _, m := range p.Missions() {
		if m.IsCompleted && !m.RewardClaimed {
			if gold, ok := p.ClaimReward(m.ID); ok {
				fmt.Printf("🏅 任务 %d 完成，领取 %d 金币\n", m.ID, gold)
			}
		}
	}

	boost := p.Boost()
	if !boost.Unlocked && view.Gold > 5000 {
		p.UnlockBoost()
		fmt.Println("⚡ 加速功能解锁！")
	}
	if boost.Unlocked && boost.Phase == "idle" {
		if p.ActivateBoost() {
			fmt.Println("🚀 加速激活 +50%")
		}
	}
}

// printStatus 打印一行状态
func printStatus(p *api.ProgressAPI) {
	view := p.Player()
	claimed := 0
	for _, m := range p.Missions() {
		if m.RewardClaimed {
			claimed++
		}
	}
	fmt.Printf("💰 %d金币 | 🛣️ %.2fkm | 🏃 ×%.1f | 📦 %d/%d | 🏅 %d个任务\n",
		view.Gold, view.DistanceKm, view.SpeedMultiplier,
		view.StorageUsed, view.StorageMax, claimed)
}

// printSummary 打印模拟汇总
func printSummary(p *api.ProgressAPI, frames int) {
	view := p.Player()
	fmt.Println("═══════════════════════════════════════════")
	fmt.Println("模拟结束")
	fmt.Printf("  帧数:     %d\n", frames)
	fmt.Printf("  金币:     %d\n", view.Gold)
	fmt.Printf("  里程:     %.2f km\n", view.DistanceKm)
	fmt.Printf("  仓库:     Lv.%d (%d格)\n", view.StorageLevel, view.StorageMax)
	fmt.Printf("  收益:     Lv.%d (×%.1f)\n", view.IncomeLevel, view.Income)
	fmt.Println("═══════════════════════════════════════════")
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("放置游戏进度引擎模拟器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("放置游戏进度引擎模拟器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  idle-sim [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  IDLE_GAME_DATABASE_DSN   存档数据库路径")
	fmt.Println("  IDLE_GAME_LOG_LEVEL      日志级别")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  idle-sim -config=./config/config.yaml -duration=1m")
	fmt.Println("  idle-sim -seed=42")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config, installID string, seed int64) {
	fmt.Println("═══════════════════════════════════════════")
	fmt.Println("      放置游戏进度引擎 · 模拟器")
	fmt.Println("═══════════════════════════════════════════")
	fmt.Printf("版本: %s | PID: %d\n", Version, os.Getpid())
	fmt.Printf("安装标识: %s\n", installID)
	fmt.Printf("随机种子: %d\n", seed)
	fmt.Printf("去抖间隔: %s | 巡检间隔: %s\n",
		cfg.Save.DebounceInterval, cfg.Goal.AutoTickInterval)
	fmt.Println("═══════════════════════════════════════════")
}
