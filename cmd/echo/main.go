package main

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"reaktor"
)

var config *reaktor.Config

func init() {
	configFilePath := flag.String("c", "cmd/echo/config.toml", "path to configuration file.")
	flag.Parse()
	loaded, err := reaktor.LoadConfig(*configFilePath)
	if err != nil {
		log.Fatal().Msgf("can't load config: %+v", err)
	}
	config = loaded
	initLog(config)
}

func initLog(config *reaktor.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(config.Global.Level())
}

func main() {
	log.Info().Msg("starting echo server...")
	if config.Global.RaiseFileLimit > 0 {
		if _, err := reaktor.RaiseFileLimit(config.Global.RaiseFileLimit); err != nil {
			log.Warn().Msgf("can't raise file limit: %+v", err)
		}
	}
	if len(config.Servers) == 0 {
		log.Fatal().Msg("no servers configured")
	}

	stop := &stopper{}
	go stop.waitForSignal()

	group := &errgroup.Group{}
	for _, server := range config.Servers {
		server := server
		group.Go(func() error {
			return serve(server, stop)
		})
	}
	if err := group.Wait(); err != nil {
		log.Fatal().Msgf("got error while serving: %+v", err)
	}
	log.Info().Msg("all servers stopped")
}

// stopper fans a process signal out to every loop's control channel.
type stopper struct {
	mu       sync.Mutex
	controls []reaktor.SignalSender[reaktor.SystemEvent]
}

func (s *stopper) add(control reaktor.SignalSender[reaktor.SystemEvent]) {
	s.mu.Lock()
	s.controls = append(s.controls, control)
	s.mu.Unlock()
}

func (s *stopper) waitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	log.Info().Msgf("received signal %s, stopping servers", sig)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, control := range s.controls {
		if err := control.Send(reaktor.SystemStop); err != nil {
			log.Error().Msgf("got error while sending stop: %+v", err)
		}
	}
}

func serve(server reaktor.ServerConfig, stop *stopper) error {
	sys, err := reaktor.NewSystem(server.Loop.System())
	if err != nil {
		return err
	}
	defer sys.Close()

	var acceptor reaktor.Reactor[reaktor.Unit, reaktor.Accepted]
	switch server.Net {
	case "unix":
		listener, err := reaktor.ListenUDS(server.Address)
		if err != nil {
			return err
		}
		defer listener.Close()
		reactive, err := reaktor.NewReactiveUDSListener(sys, listener)
		if err != nil {
			return err
		}
		acceptor = reactive
		log.Info().Msgf("server %s listening on %s", server.Name, listener.Path())
	default:
		listener, err := reaktor.ListenTCP(server.Address)
		if err != nil {
			return err
		}
		defer listener.Close()
		reactive, err := reaktor.NewReactiveTCPListener(sys, listener)
		if err != nil {
			return err
		}
		acceptor = reactive
		log.Info().Msgf("server %s listening on %s", server.Name, listener.Addr())
	}

	control, err := sys.Control()
	if err != nil {
		return err
	}
	stop.add(control)

	// Acceptor holds token 0 and the control channel token 1; session
	// tokens start above them.
	echo := newEchoServer(sys, server.MaxSessions)
	tree := reaktor.And(reaktor.Chain(acceptor, echo.registrar()), echo.handler())

	err = reaktor.Start(sys, tree)
	stats := sys.Stats()
	log.Info().Msgf("server %s dispatched %d events over %d wakes", server.Name, stats.EventsDispatched(), stats.WakeCount())
	return err
}

const readBufferSize = 4096

type echoSession struct {
	stream  reaktor.Stream
	pending []byte
}

type echoServer struct {
	sessions *reaktor.Sessions[echoSession]
	buf      [readBufferSize]byte
}

func newEchoServer(sys *reaktor.System, maxSessions int) *echoServer {
	return &echoServer{
		sessions: reaktor.NewSessions[echoSession](sys, reaktor.Bounded(maxSessions), 2),
	}
}

// registrar stores each accepted connection in the session table,
// registering its descriptor for both readiness directions.
func (e *echoServer) registrar() reaktor.Reactor[reaktor.Accepted, reaktor.Token] {
	return reaktor.ReactorFunc[reaktor.Accepted, reaktor.Token](func(r reaktor.Reaction[reaktor.Accepted]) reaktor.Reaction[reaktor.Token] {
		if r.Kind() != reaktor.KindValue {
			return reaktor.Continue[reaktor.Token]()
		}
		accepted := r.Value()
		session := echoSession{stream: *reaktor.NewStream(accepted.Conn)}
		token, _, err := e.sessions.AddFd(session, accepted.Conn.Fd(), reaktor.Readable|reaktor.Writable)
		if err != nil {
			log.Warn().Msgf("rejecting connection from %s: %+v", accepted.Addr, err)
			accepted.Conn.Close()
			return reaktor.Continue[reaktor.Token]()
		}
		return reaktor.Value(token)
	})
}

// handler serves session events: reads everything available and echoes it
// back, keeping whatever the socket refuses until the next writable event.
func (e *echoServer) handler() reaktor.Reactor[reaktor.Unit, reaktor.Token] {
	return reaktor.ReactorFunc[reaktor.Unit, reaktor.Token](func(r reaktor.Reaction[reaktor.Unit]) reaktor.Reaction[reaktor.Token] {
		if r.Kind() != reaktor.KindEvent {
			return reaktor.Continue[reaktor.Token]()
		}
		ev := r.Event()
		session, ok := e.sessions.Get(ev.Token)
		if !ok {
			return reaktor.FromEvent[reaktor.Token](ev)
		}
		session.stream.Absorb(ev.Ready)
		e.serveSession(ev.Token, session)
		return reaktor.Value(ev.Token)
	})
}

func (e *echoServer) serveSession(token reaktor.Token, session *echoSession) {
	if len(session.pending) > 0 {
		n, err := session.stream.WriteAll(session.pending)
		if err != nil {
			log.Error().Msgf("got error while writing to session %d: %+v", token, err)
			e.drop(token, session)
			return
		}
		session.pending = session.pending[n:]
	}
	for len(session.pending) == 0 {
		n, err := session.stream.ReadAvailable(e.buf[:])
		if n > 0 {
			written, werr := session.stream.WriteAll(e.buf[:n])
			if werr != nil {
				log.Error().Msgf("got error while writing to session %d: %+v", token, werr)
				e.drop(token, session)
				return
			}
			if written < n {
				session.pending = append(session.pending, e.buf[written:n]...)
			}
		}
		if err == io.EOF {
			e.drop(token, session)
			return
		}
		if err != nil {
			log.Error().Msgf("got error while reading from session %d: %+v", token, err)
			e.drop(token, session)
			return
		}
		if n == 0 {
			break
		}
	}
	if session.stream.Closed() && len(session.pending) == 0 {
		e.drop(token, session)
	}
}

func (e *echoServer) drop(token reaktor.Token, session *echoSession) {
	conn := session.stream.Conn()
	e.sessions.Remove(token)
	if err := conn.Close(); err != nil {
		log.Debug().Msgf("got error while closing session %d: %+v", token, err)
	}
}
