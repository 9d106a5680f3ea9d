package service

import (
	"context"
	"log"
	"time"

	"github.com/openpodium/podium/internal/debate/domain"
	"github.com/openpodium/podium/internal/debate/timer"
	"github.com/openpodium/podium/internal/platform/errors"
)

// timersLocked returns the live timer set for a session, creating it on
// first use. Callers must hold s.mu.
func (s *Service) timersLocked(sessionID string) *sessionTimers {
	timers := s.timers[sessionID]
	if timers == nil {
		timers = &sessionTimers{speech: make(map[string]*timer.Countdown)}
		s.timers[sessionID] = timers
	}
	return timers
}

// prepCountdown returns the prep countdown, seeding it from the persisted
// seconds on first use.
func (t *sessionTimers) prepCountdown(now func() time.Time, seconds int) *timer.Countdown {
	if t.prep == nil {
		t.prep = timer.New(seconds, now)
	}
	return t.prep
}

// speechCountdown returns a speaker's countdown, seeding it from the
// persisted seconds on first use.
func (t *sessionTimers) speechCountdown(speakerID string, now func() time.Time, seconds int) *timer.Countdown {
	countdown := t.speech[speakerID]
	if countdown == nil {
		countdown = timer.New(seconds, now)
		t.speech[speakerID] = countdown
	}
	return countdown
}

// pauseAllTimersLocked stops the prep clock and every speech clock for a
// session and mirrors the stopped state into the session. Callers must hold
// s.mu.
func (s *Service) pauseAllTimersLocked(sessionID string, session *domain.Session) {
	timers := s.timers[sessionID]
	if timers == nil {
		session.PrepTimerRunning = false
		for i := range session.Speakers {
			session.Speakers[i].SpeechTimerRunning = false
		}
		return
	}
	if timers.prep != nil {
		timers.prep.Pause()
		state := timers.prep.State()
		session.PrepSecondsLeft = state.SecondsLeft
	}
	session.PrepTimerRunning = false
	for i := range session.Speakers {
		speaker := &session.Speakers[i]
		if countdown := timers.speech[speaker.ID]; countdown != nil {
			countdown.Pause()
			speaker.SpeechSecondsLeft = countdown.State().SecondsLeft
		}
		speaker.SpeechTimerRunning = false
	}
}

// StartSpeechTimer starts a speaker's speech countdown. Debate phase only.
func (s *Service) StartSpeechTimer(ctx context.Context, sessionID, speakerID string) (domain.Session, error) {
	return s.updateSpeechTimer(ctx, sessionID, speakerID, func(c *timer.Countdown) { c.Start() })
}

// PauseSpeechTimer pauses a speaker's speech countdown. Debate phase only.
func (s *Service) PauseSpeechTimer(ctx context.Context, sessionID, speakerID string) (domain.Session, error) {
	return s.updateSpeechTimer(ctx, sessionID, speakerID, func(c *timer.Countdown) { c.Pause() })
}

// ResetSpeechTimer stops a speaker's speech countdown and restores the full
// speech duration. Debate phase only.
func (s *Service) ResetSpeechTimer(ctx context.Context, sessionID, speakerID string) (domain.Session, error) {
	return s.updateSpeechTimer(ctx, sessionID, speakerID, func(c *timer.Countdown) { c.Reset(domain.DefaultSpeechSeconds) })
}

func (s *Service) updateSpeechTimer(ctx context.Context, sessionID, speakerID string, op func(*timer.Countdown)) (domain.Session, error) {
	s.mu.Lock()
	session, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	if session.Phase != domain.PhaseDebate {
		s.mu.Unlock()
		return domain.Session{}, wrongPhase(session.Phase, domain.PhaseDebate)
	}
	speaker := session.SpeakerByID(speakerID)
	if speaker == nil {
		s.mu.Unlock()
		return domain.Session{}, errors.New(errors.CodeSpeakerNotFound, "speaker not found")
	}

	countdown := s.timersLocked(sessionID).speechCountdown(speakerID, s.now, speaker.SpeechSecondsLeft)
	op(countdown)
	state := countdown.State()
	patch := domain.SpeakerPatch{
		SpeechSecondsLeft:  &state.SecondsLeft,
		SpeechTimerRunning: &state.Running,
	}
	if err := domain.ApplySpeakerPatch(session.Speakers, speakerID, patch); err != nil {
		s.mu.Unlock()
		return domain.Session{}, speakerPatchError(err)
	}
	if err := s.putLocked(ctx, session); err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	s.mu.Unlock()

	s.notifyChange(sessionID)
	return session, nil
}

// RunTimerLoop advances every running countdown until ctx is cancelled. One
// loop serves all sessions; each pass consumes the real time elapsed since
// the previous observation, so a delayed or missed pass costs the right
// number of seconds instead of stalling the clocks.
func (s *Service) RunTimerLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one pass over all live timers, persisting changed sessions
// and firing the prep-to-debate transition for any prep clock that reached
// zero. It is exported so tests and alternative schedulers can drive time
// explicitly.
func (s *Service) Tick(ctx context.Context) {
	s.mu.Lock()
	var changed []string
	for sessionID, timers := range s.timers {
		session, err := s.loadLocked(ctx, sessionID)
		if err != nil {
			// Session deleted since the timers were created.
			delete(s.timers, sessionID)
			continue
		}

		dirty := false
		if timers.prep != nil {
			state := timers.prep.Tick()
			if session.PrepSecondsLeft != state.SecondsLeft || session.PrepTimerRunning != state.Running {
				session.PrepSecondsLeft = state.SecondsLeft
				session.PrepTimerRunning = state.Running
				dirty = true
			}
			if session.Phase == domain.PhasePrep && state.SecondsLeft == 0 {
				session.Phase = domain.PhaseDebate
				session.PrepTimerRunning = false
				dirty = true
			}
		}
		for speakerID, countdown := range timers.speech {
			speaker := session.SpeakerByID(speakerID)
			if speaker == nil {
				delete(timers.speech, speakerID)
				continue
			}
			state := countdown.Tick()
			if speaker.SpeechSecondsLeft == state.SecondsLeft && speaker.SpeechTimerRunning == state.Running {
				continue
			}
			patch := domain.SpeakerPatch{
				SpeechSecondsLeft:  &state.SecondsLeft,
				SpeechTimerRunning: &state.Running,
			}
			if err := domain.ApplySpeakerPatch(session.Speakers, speakerID, patch); err == nil {
				dirty = true
			}
		}

		if !dirty {
			continue
		}
		if err := s.putLocked(ctx, session); err != nil {
			log.Printf("timer tick: persist session %s: %v", sessionID, err)
			continue
		}
		changed = append(changed, sessionID)
	}
	s.mu.Unlock()

	for _, sessionID := range changed {
		s.notifyChange(sessionID)
	}
}
