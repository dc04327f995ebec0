package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"broadside/client"
	"broadside/client/term"
	"broadside/logging"
	"broadside/protocol"
)

// 终端观战/操控客户端：方向键转向与加减速，空格开火，q 退出
func main() {
	var (
		serverURL string
		room      string
		player    string
		codecName string
		buffer    time.Duration
		fps       int
		worldW    float64
		worldH    float64
		logCfg    = logging.DefaultConfig("viewer.log")
	)
	flag.StringVar(&serverURL, "url", "ws://localhost:8080/ws", "server websocket url")
	flag.StringVar(&room, "room", "room-1", "room id")
	flag.StringVar(&player, "player", "", "player id (required)")
	flag.StringVar(&codecName, "codec", "json", "wire codec: json or msgpack")
	flag.DurationVar(&buffer, "buffer", client.DefaultBufferDelay, "interpolation buffer delay, must match the server")
	flag.IntVar(&fps, "fps", 30, "frames per second")
	flag.Float64Var(&worldW, "width", 2000, "arena width in world units")
	flag.Float64Var(&worldH, "height", 2000, "arena height in world units")
	flag.StringVar(&logCfg.Path, "log", logCfg.Path, "log file")
	flag.StringVar(&logCfg.Level, "log-level", logCfg.Level, "log level: debug, info, warn, error")
	flag.Parse()

	if player == "" {
		fmt.Fprintln(os.Stderr, "-player is required")
		os.Exit(2)
	}
	codec, err := protocol.CodecByName(codecName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	defer logging.Sync()
	log := logging.Named("viewer")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := client.Dial(ctx, serverURL, room, player, codec)
	if err != nil {
		log.Errorw("connect failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalw("screen", "err", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalw("screen init", "err", err)
	}
	defer screen.Fini()

	ip := client.NewInterpolator(client.WithBufferDelay(buffer))
	bridge := &statusBridge{
		Bridge: term.New(screen, client.DefaultAssets(), worldW, worldH),
		ip:     ip,
		player: player,
		room:   room,
	}
	renderer := client.NewRenderer(ip, bridge)
	log.Infow("viewer started", "player", player, "room", room, "codec", codec.Name(), "buffer", ip.BufferDelay())

	go func() {
		err := conn.ReadSnapshots(ctx, renderer.OnSnapshot)
		log.Infow("snapshot stream ended", "err", err)
		cancel()
	}()

	go handleInput(ctx, cancel, screen, conn, log)

	renderer.Run(ctx, fps)
	log.Info("viewer exiting")
}

// statusBridge 每帧 Present 前刷新状态栏（渲染协程）
type statusBridge struct {
	*term.Bridge
	ip           *client.Interpolator
	player, room string
}

func (b *statusBridge) Present() {
	b.SetStatus(statusLine(b.ip, b.player, b.room))
	b.Bridge.Present()
}

const keyHelp = "arrows: steer/throttle  space: fire  q: quit"

func statusLine(ip *client.Interpolator, player, room string) string {
	e, ok := ip.State(player)
	switch {
	case !ok || e.Ship == nil:
		return fmt.Sprintf("%s @ %s  waiting for ship  %s", player, room, keyHelp)
	case e.Ship.Destroyed:
		return fmt.Sprintf("%s @ %s  hits %d  SUNK  q: quit", player, room, e.Ship.Hits)
	}
	return fmt.Sprintf("%s @ %s  hits %d  %s", player, room, e.Ship.Hits, keyHelp)
}

// pollEvents 把 PollEvent 转成 channel；ctx 结束或屏幕关闭后关闭 channel
func pollEvents(ctx context.Context, screen tcell.Screen) <-chan tcell.Event {
	events := make(chan tcell.Event)
	go func() {
		defer close(events)
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events
}

type commander interface {
	SendHeading(orientation string, accelerating bool) error
	SendFire(target *protocol.Point) error
}

type logger interface {
	Warnw(msg string, keysAndValues ...any)
}

// handleInput 转向指令为电平触发：左右键保持当前油门状态
func handleInput(ctx context.Context, cancel context.CancelFunc, screen tcell.Screen, conn commander, log logger) {
	events := pollEvents(ctx, screen)
	orientation, accelerating := protocol.OrientationForward, false
	for {
		var ev tcell.Event
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			ev = e
		}
		key, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}

		switch {
		case key.Key() == tcell.KeyEscape || key.Key() == tcell.KeyCtrlC ||
			(key.Key() == tcell.KeyRune && key.Rune() == 'q'):
			cancel()
			return
		case key.Key() == tcell.KeyRune && key.Rune() == ' ':
			if err := conn.SendFire(nil); err != nil {
				log.Warnw("send failed", "err", err)
			}
			continue
		case key.Key() == tcell.KeyUp:
			orientation, accelerating = protocol.OrientationForward, true
		case key.Key() == tcell.KeyDown:
			orientation, accelerating = protocol.OrientationForward, false
		case key.Key() == tcell.KeyLeft:
			orientation = protocol.OrientationLeft
		case key.Key() == tcell.KeyRight:
			orientation = protocol.OrientationRight
		default:
			continue
		}
		if err := conn.SendHeading(orientation, accelerating); err != nil {
			log.Warnw("send failed", "err", err)
		}
	}
}
