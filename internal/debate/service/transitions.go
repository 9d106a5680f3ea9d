package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openpodium/podium/internal/debate/ai"
	"github.com/openpodium/podium/internal/debate/domain"
	"github.com/openpodium/podium/internal/platform/errors"
	"github.com/openpodium/podium/internal/platform/timeouts"
)

// SubmitMotion attaches a motion to a setup-phase session and advances it to
// prep (or straight to debate when skipPrep is set). The motion is analyzed
// by the external collaborator first; the phase only changes after the
// analysis succeeds, and a failure leaves the session untouched so the
// caller can retry.
func (s *Service) SubmitMotion(ctx context.Context, sessionID, motion string, skipPrep bool) (domain.Session, error) {
	motion = strings.TrimSpace(motion)
	if motion == "" {
		return domain.Session{}, errors.New(errors.CodeSessionMotionEmpty, "motion is required")
	}

	s.mu.Lock()
	session, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	if session.Phase != domain.PhaseSetup {
		s.mu.Unlock()
		return domain.Session{}, wrongPhase(session.Phase, domain.PhaseSetup)
	}
	s.mu.Unlock()

	motionContext, err := s.analyzeMotion(ctx, motion)
	if err != nil {
		return domain.Session{}, errors.Wrap(errors.CodeCollaboratorFailure, "motion analysis failed", err)
	}

	s.mu.Lock()
	session, err = s.loadLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	if session.Phase != domain.PhaseSetup {
		s.mu.Unlock()
		return domain.Session{}, wrongPhase(session.Phase, domain.PhaseSetup)
	}

	session.Motion = motion
	session.MotionContext = &motionContext
	if skipPrep {
		session.Phase = domain.PhaseDebate
		session.PrepSecondsLeft = 0
		session.PrepTimerRunning = false
	} else {
		session.Phase = domain.PhasePrep
		session.PrepSecondsLeft = domain.DefaultPrepSeconds
		session.PrepTimerRunning = true
		prep := s.timersLocked(sessionID).prepCountdown(s.now, domain.DefaultPrepSeconds)
		prep.Reset(domain.DefaultPrepSeconds)
		prep.Start()
	}
	if err := s.putLocked(ctx, session); err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	s.mu.Unlock()

	s.notifyChange(sessionID)
	return session, nil
}

// StartPrep resumes the preparation countdown.
func (s *Service) StartPrep(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.setPrepRunning(ctx, sessionID, true)
}

// PausePrep pauses the preparation countdown.
func (s *Service) PausePrep(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.setPrepRunning(ctx, sessionID, false)
}

func (s *Service) setPrepRunning(ctx context.Context, sessionID string, running bool) (domain.Session, error) {
	s.mu.Lock()
	session, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	if session.Phase != domain.PhasePrep {
		s.mu.Unlock()
		return domain.Session{}, wrongPhase(session.Phase, domain.PhasePrep)
	}

	prep := s.timersLocked(sessionID).prepCountdown(s.now, session.PrepSecondsLeft)
	if running {
		prep.Start()
	} else {
		prep.Pause()
	}
	state := prep.State()
	session.PrepSecondsLeft = state.SecondsLeft
	session.PrepTimerRunning = state.Running
	if err := s.putLocked(ctx, session); err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	s.mu.Unlock()

	s.notifyChange(sessionID)
	return session, nil
}

// SkipPrep forces the prep countdown to zero and moves the session to debate.
func (s *Service) SkipPrep(ctx context.Context, sessionID string) (domain.Session, error) {
	s.mu.Lock()
	session, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	if session.Phase != domain.PhasePrep {
		s.mu.Unlock()
		return domain.Session{}, wrongPhase(session.Phase, domain.PhasePrep)
	}

	s.timersLocked(sessionID).prepCountdown(s.now, session.PrepSecondsLeft).Reset(0)
	session.Phase = domain.PhaseDebate
	session.PrepSecondsLeft = 0
	session.PrepTimerRunning = false
	if err := s.putLocked(ctx, session); err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	s.mu.Unlock()

	s.notifyChange(sessionID)
	return session, nil
}

// SubmitSpeechInput carries one captured speech for a speaker.
type SubmitSpeechInput struct {
	SessionID string
	SpeakerID string
	Audio     []byte
	AudioRef  string
}

// SubmitSpeech sends a captured speech to the evaluation collaborator and,
// on success, marks the speaker completed with transcription, score, and
// feedback. Evaluations are serialized per speaker: a submission for a
// speaker already mid-evaluation is rejected. A failure leaves the speaker
// incomplete and every other speaker untouched.
func (s *Service) SubmitSpeech(ctx context.Context, input SubmitSpeechInput) (domain.Session, error) {
	s.mu.Lock()
	session, err := s.loadLocked(ctx, input.SessionID)
	if err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	if session.Phase != domain.PhaseDebate {
		s.mu.Unlock()
		return domain.Session{}, wrongPhase(session.Phase, domain.PhaseDebate)
	}
	speaker := session.SpeakerByID(input.SpeakerID)
	if speaker == nil {
		s.mu.Unlock()
		return domain.Session{}, errors.New(errors.CodeSpeakerNotFound, "speaker not found")
	}
	if s.evaluating[input.SessionID][input.SpeakerID] {
		s.mu.Unlock()
		return domain.Session{}, errors.New(errors.CodeSpeakerEvaluating, "speaker evaluation already in flight")
	}
	if s.evaluating[input.SessionID] == nil {
		s.evaluating[input.SessionID] = make(map[string]bool)
	}
	s.evaluating[input.SessionID][input.SpeakerID] = true

	request := ai.EvaluateSpeechRequest{
		Audio:    input.Audio,
		AudioRef: input.AudioRef,
		Role:     speaker.Role,
		Motion:   session.Motion,
	}
	if session.MotionContext != nil {
		request.MotionContext = *session.MotionContext
	}
	s.mu.Unlock()

	evaluation, evalErr := s.evaluateSpeech(ctx, request)

	s.mu.Lock()
	if inflight := s.evaluating[input.SessionID]; inflight != nil {
		delete(inflight, input.SpeakerID)
	}
	if evalErr != nil {
		s.mu.Unlock()
		return domain.Session{}, errors.Wrap(errors.CodeCollaboratorFailure, "speech evaluation failed", evalErr)
	}

	session, err = s.loadLocked(ctx, input.SessionID)
	if err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	if session.Phase != domain.PhaseDebate {
		// The debate moved on while the evaluation was in flight; the
		// result is dropped rather than applied to a finished session.
		s.mu.Unlock()
		return domain.Session{}, wrongPhase(session.Phase, domain.PhaseDebate)
	}

	completed := true
	running := false
	patch := domain.SpeakerPatch{
		Completed:          &completed,
		SpeechTimerRunning: &running,
		Transcription:      &evaluation.Transcription,
		Score:              &evaluation.Score,
		Feedback:           &evaluation.Feedback,
		AudioRef:           &input.AudioRef,
	}
	if err := domain.ApplySpeakerPatch(session.Speakers, input.SpeakerID, patch); err != nil {
		s.mu.Unlock()
		if errors.Is(err, domain.ErrScoreOutOfRange) {
			return domain.Session{}, errors.Wrap(errors.CodeCollaboratorFailure, "evaluation score out of range", err)
		}
		return domain.Session{}, speakerPatchError(err)
	}
	if timers := s.timers[input.SessionID]; timers != nil {
		if countdown := timers.speech[input.SpeakerID]; countdown != nil {
			countdown.Pause()
		}
	}
	if err := s.putLocked(ctx, session); err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	s.mu.Unlock()

	s.notifyChange(input.SessionID)
	return session, nil
}

// FinishDebate moves a debate-phase session to results and requests the
// final team ranking. The session is visibly adjudicating while the call is
// in flight. A collaborator failure, or a malformed rank list, rolls the
// session back to debate atomically with no partial ranking data left
// behind; a late success after such a rollback is dropped.
func (s *Service) FinishDebate(ctx context.Context, sessionID string) (domain.Session, error) {
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
	if session.Adjudicating {
		s.mu.Unlock()
		return domain.Session{}, errors.New(errors.CodeSessionAdjudicating, "adjudication already in flight")
	}

	s.pauseAllTimersLocked(sessionID, &session)
	session.Phase = domain.PhaseResults
	session.Adjudicating = true
	if err := s.putLocked(ctx, session); err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}

	// Snapshot for the ranking call: concurrent speaker updates after this
	// point must not leak into the in-flight request.
	snapshot := session.Clone()
	s.epochs[sessionID]++
	epoch := s.epochs[sessionID]
	s.mu.Unlock()

	s.notifyChange(sessionID)

	request := ai.RankTeamsRequest{
		Speakers: snapshot.Speakers,
		Motion:   snapshot.Motion,
	}
	if snapshot.MotionContext != nil {
		request.MotionContext = *snapshot.MotionContext
	}
	adjudication, rankErr := s.rankTeams(ctx, request)

	var results []domain.TeamResult
	if rankErr == nil {
		results, rankErr = domain.AggregateResults(snapshot.Speakers, adjudication.Rankings)
	}

	s.mu.Lock()
	if s.epochs[sessionID] != epoch {
		s.mu.Unlock()
		return domain.Session{}, errors.New(errors.CodeSessionAdjudicating, "adjudication superseded")
	}
	session, err = s.loadLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}

	if rankErr != nil {
		session.Phase = domain.PhaseDebate
		session.Adjudicating = false
		session.FinalRankings = nil
		session.Adjudication = ""
		if err := s.putLocked(ctx, session); err != nil {
			s.mu.Unlock()
			return domain.Session{}, err
		}
		s.mu.Unlock()
		s.notifyChange(sessionID)
		return domain.Session{}, errors.Wrap(errors.CodeCollaboratorFailure, "team ranking failed", rankErr)
	}

	session.FinalRankings = results
	session.Adjudication = adjudication.Summary
	session.Adjudicating = false
	if err := s.putLocked(ctx, session); err != nil {
		s.mu.Unlock()
		return domain.Session{}, err
	}
	s.mu.Unlock()

	s.notifyChange(sessionID)
	return session, nil
}

func (s *Service) analyzeMotion(ctx context.Context, motion string) (domain.MotionContext, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.CollaboratorCall)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "debate.analyze_motion", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	motionContext, err := s.collaborators.AnalyzeMotion(ctx, motion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "motion analysis failed")
		return domain.MotionContext{}, err
	}
	return motionContext, nil
}

func (s *Service) evaluateSpeech(ctx context.Context, request ai.EvaluateSpeechRequest) (ai.SpeechEvaluation, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.CollaboratorCall)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "debate.evaluate_speech", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	evaluation, err := s.collaborators.EvaluateSpeech(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "speech evaluation failed")
		return ai.SpeechEvaluation{}, err
	}
	return evaluation, nil
}

func (s *Service) rankTeams(ctx context.Context, request ai.RankTeamsRequest) (ai.Adjudication, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.CollaboratorCall)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "debate.rank_teams", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	adjudication, err := s.collaborators.RankTeams(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "team ranking failed")
		return ai.Adjudication{}, err
	}
	return adjudication, nil
}

func wrongPhase(got, want domain.Phase) error {
	return errors.WithMetadata(errors.CodeSessionWrongPhase, "session is in the wrong phase", map[string]string{
		"phase": string(got),
		"want":  string(want),
	})
}
