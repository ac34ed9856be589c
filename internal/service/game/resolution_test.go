package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bootNight(t *testing.T, rules Rules, seats ...seat) (*GameMachine, *recordingHost) {
	t.Helper()

	gm, host, _ := newTestMachine(t, rules, seats...)
	gm.boot()
	require.Equal(t, STAGE_NIGHT, gm.ctx.GameStage)
	return gm, host
}

func TestDoctorSaveYieldsNoDeaths(t *testing.T) {
	gm, host := bootNight(t, testRules(),
		seat{"m", ROLE_MAFIA},
		seat{"doc", ROLE_DOCTOR},
		seat{"v", ROLE_CITIZEN},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
		seat{"c3", ROLE_CITIZEN},
	)

	require.NoError(t, submit(gm, "m", ACTION_CHOOSE, "v"))
	require.NoError(t, submit(gm, "doc", ACTION_PROTECT, "v"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.Equal(t, STAGE_NIGHT, res.Stage)
	assert.Empty(t, res.Deaths)
	assert.True(t, gm.ctx.Players["v"].Alive)
	assert.Equal(t, STAGE_DAY, gm.ctx.GameStage)
	assert.Contains(t, host.broadcastsOn(CHANNEL_GENERAL), "The sun rises. Nobody died tonight.")
}

func TestMafiaKillsUnprotectedTarget(t *testing.T) {
	gm, host := bootNight(t, testRules(),
		seat{"m", ROLE_MAFIA},
		seat{"doc", ROLE_DOCTOR},
		seat{"v", ROLE_CITIZEN},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
	)

	require.NoError(t, submit(gm, "m", ACTION_CHOOSE, "v"))
	require.NoError(t, submit(gm, "doc", ACTION_PROTECT, "c1"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.Equal(t, []Death{{PlayerID: "v", Cause: CAUSE_MAFIA}}, res.Deaths)
	assert.False(t, gm.ctx.Players["v"].Alive)
	assert.Contains(t, host.broadcastsOn(CHANNEL_GENERAL), "V the Citizen was murdered by the mafia.")
	assert.True(t, containsText(host.whispersTo("v"), "You are dead"))
}

func TestMafiaSplitVoteWithNoEliminationPolicy(t *testing.T) {
	gm, _ := bootNight(t, testRules(),
		seat{"m1", ROLE_MAFIA},
		seat{"m2", ROLE_MAFIA},
		seat{"m3", ROLE_MAFIA},
		seat{"m4", ROLE_MAFIA},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
		seat{"c3", ROLE_CITIZEN},
		seat{"c4", ROLE_CITIZEN},
		seat{"c5", ROLE_CITIZEN},
		seat{"c6", ROLE_CITIZEN},
	)

	require.NoError(t, submit(gm, "m1", ACTION_CHOOSE, "c1"))
	require.NoError(t, submit(gm, "m2", ACTION_CHOOSE, "c1"))
	require.NoError(t, submit(gm, "m3", ACTION_CHOOSE, "c2"))
	require.NoError(t, submit(gm, "m4", ACTION_CHOOSE, "c2"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.Empty(t, res.Deaths)
	assert.Equal(t, []string{"c1", "c2"}, res.Tied)
	assert.Equal(t, STAGE_DAY, gm.ctx.GameStage)
}

func TestMafiaSplitVoteWithRandomPolicy(t *testing.T) {
	rules := testRules()
	rules.NightTiePolicy = TIE_POLICY_RANDOM

	gm, _ := bootNight(t, rules,
		seat{"m1", ROLE_MAFIA},
		seat{"m2", ROLE_MAFIA},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
		seat{"c3", ROLE_CITIZEN},
		seat{"c4", ROLE_CITIZEN},
	)

	require.NoError(t, submit(gm, "m1", ACTION_CHOOSE, "c1"))
	require.NoError(t, submit(gm, "m2", ACTION_CHOOSE, "c2"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	require.Len(t, res.Deaths, 1)
	assert.Contains(t, []string{"c1", "c2"}, res.Deaths[0].PlayerID)
	assert.Equal(t, []string{"c1", "c2"}, res.Tied)
}

func TestProtectedTerroristProducesNoDeaths(t *testing.T) {
	gm, host := bootNight(t, testRules(),
		seat{"m", ROLE_MAFIA},
		seat{"t", ROLE_TERRORIST},
		seat{"doc", ROLE_DOCTOR},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
		seat{"c3", ROLE_CITIZEN},
	)

	require.NoError(t, submit(gm, "t", ACTION_BOMB, "c1"))
	require.NoError(t, submit(gm, "doc", ACTION_PROTECT, "t"))
	require.NoError(t, submit(gm, "m", ACTION_CHOOSE, ""))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.Empty(t, res.Deaths)
	assert.True(t, gm.ctx.Players["t"].Alive)
	assert.True(t, gm.ctx.Players["c1"].Alive)

	// 被阻止的自爆不消耗次数
	bomb, _ := gm.ctx.Players["t"].Role.Action(ACTION_BOMB)
	assert.True(t, bomb.IsAvailable(gm.ctx.Players["t"], STAGE_NIGHT))
	assert.True(t, containsText(host.whispersTo("t"), "kept you from detonating"))
}

func TestTerroristBombIgnoresTargetProtection(t *testing.T) {
	gm, _ := bootNight(t, testRules(),
		seat{"m", ROLE_MAFIA},
		seat{"t", ROLE_TERRORIST},
		seat{"doc", ROLE_DOCTOR},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
		seat{"c3", ROLE_CITIZEN},
		seat{"c4", ROLE_CITIZEN},
	)

	require.NoError(t, submit(gm, "t", ACTION_BOMB, "c1"))
	require.NoError(t, submit(gm, "doc", ACTION_PROTECT, "c1"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.Equal(t, []Death{
		{PlayerID: "c1", Cause: CAUSE_BOMB},
		{PlayerID: "t", Cause: CAUSE_BOMB},
	}, res.Deaths)
	assert.True(t, gm.ctx.Players["t"].hasUsed(ACTION_BOMB))
	assert.Equal(t, STAGE_DAY, gm.ctx.GameStage)
}

func TestProtectionCancelsOnlyThatElimination(t *testing.T) {
	gm, _ := bootNight(t, testRules(),
		seat{"m", ROLE_MAFIA},
		seat{"doc", ROLE_DOCTOR},
		seat{"vig", ROLE_VIGILANTE},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
		seat{"c3", ROLE_CITIZEN},
	)

	require.NoError(t, submit(gm, "m", ACTION_CHOOSE, "c1"))
	require.NoError(t, submit(gm, "doc", ACTION_PROTECT, "c1"))
	require.NoError(t, submit(gm, "vig", ACTION_SHOOT, "c2"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.Equal(t, []Death{{PlayerID: "c2", Cause: CAUSE_VIGILANTE}}, res.Deaths)
	assert.True(t, gm.ctx.Players["c1"].Alive)
}

func TestVigilanteShotIsBlockedByProtectionButStillUsed(t *testing.T) {
	gm, _ := bootNight(t, testRules(),
		seat{"m", ROLE_MAFIA},
		seat{"doc", ROLE_DOCTOR},
		seat{"vig", ROLE_VIGILANTE},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
	)

	require.NoError(t, submit(gm, "vig", ACTION_SHOOT, "m"))
	require.NoError(t, submit(gm, "doc", ACTION_PROTECT, "m"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.Empty(t, res.Deaths)
	assert.True(t, gm.ctx.Players["vig"].hasUsed(ACTION_SHOOT))
}

func TestSameVictimDiesOnce(t *testing.T) {
	gm, _ := bootNight(t, testRules(),
		seat{"m", ROLE_MAFIA},
		seat{"vig", ROLE_VIGILANTE},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
		seat{"c3", ROLE_CITIZEN},
	)

	require.NoError(t, submit(gm, "m", ACTION_CHOOSE, "c1"))
	require.NoError(t, submit(gm, "vig", ACTION_SHOOT, "c1"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.Equal(t, []string{"c1"}, deadIDs(res))
}

func TestDetectiveSeesGodfatherAsInnocent(t *testing.T) {
	gm, host := bootNight(t, testRules(),
		seat{"gf", ROLE_GODFATHER},
		seat{"m", ROLE_MAFIA},
		seat{"det", ROLE_DETECTIVE},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
		seat{"c3", ROLE_CITIZEN},
	)

	require.NoError(t, submit(gm, "det", ACTION_INVESTIGATE, "gf"))
	require.NoError(t, endStage(gm, ""))
	assert.Contains(t, host.whispersTo("det"), "Gf is on the Innocent side.")

	// 白天没人被处决，下一个夜晚调查普通黑手党
	require.NoError(t, endStage(gm, ""))
	require.Equal(t, STAGE_NIGHT, gm.ctx.GameStage)

	require.NoError(t, submit(gm, "det", ACTION_INVESTIGATE, "m"))
	require.NoError(t, endStage(gm, ""))
	assert.Contains(t, host.whispersTo("det"), "M is on the Mafia side.")
}

func TestTerroristDiesWithTarget(t *testing.T) {
	gm, _ := bootNight(t, testRules(),
		seat{"t", ROLE_TERRORIST},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
	)

	require.NoError(t, submit(gm, "t", ACTION_BOMB, "c1"))
	require.NoError(t, endStage(gm, ""))

	// 若只结算 c1 的死亡，黑手党已与无辜者人数相当
	res := lastResolution(t, gm)
	assert.ElementsMatch(t, []string{"t", "c1"}, deadIDs(res))
	assert.False(t, gm.ctx.Players["t"].Alive)
	assert.True(t, gm.ctx.Players["c2"].Alive)

	require.NotNil(t, gm.ctx.Verdict)
	assert.Equal(t, WINNER_INNOCENT, gm.ctx.Verdict.Winner)
	assert.Equal(t, STAGE_FINISHED, gm.ctx.GameStage)
}

func TestNightKillsApplyTogether(t *testing.T) {
	gm, host := bootNight(t, testRules(),
		seat{"m", ROLE_MAFIA},
		seat{"vig", ROLE_VIGILANTE},
		seat{"c1", ROLE_CITIZEN},
	)

	require.NoError(t, submit(gm, "m", ACTION_CHOOSE, "c1"))
	require.NoError(t, submit(gm, "vig", ACTION_SHOOT, "m"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.ElementsMatch(t, []string{"m", "c1"}, deadIDs(res))
	assert.Contains(t, host.broadcastsOn(CHANNEL_GENERAL), "M the Mafioso was shot dead.")
	assert.Contains(t, host.broadcastsOn(CHANNEL_GENERAL), "C1 the Citizen was murdered by the mafia.")

	require.NotNil(t, gm.ctx.Verdict)
	assert.Equal(t, WINNER_INNOCENT, gm.ctx.Verdict.Winner)
}

func TestTerroristBombingLastInnocentIsADraw(t *testing.T) {
	gm, _ := bootNight(t, testRules(),
		seat{"t", ROLE_TERRORIST},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
	)
	gm.ctx.Players["c2"].Alive = false

	require.NoError(t, submit(gm, "t", ACTION_BOMB, "c1"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.ElementsMatch(t, []string{"t", "c1"}, deadIDs(res))

	require.NotNil(t, gm.ctx.Verdict)
	assert.Equal(t, WINNER_DRAW, gm.ctx.Verdict.Winner)
	assert.True(t, gm.IsFinished())
}

func TestNightWithoutEligibleActorsIsANoop(t *testing.T) {
	gm, host, _ := newTestMachine(t, testRules(),
		seat{"t", ROLE_TERRORIST},
		seat{"c1", ROLE_CITIZEN},
		seat{"c2", ROLE_CITIZEN},
		seat{"c3", ROLE_CITIZEN},
	)
	gm.ctx.Players["t"].markUsed(ACTION_BOMB)

	gm.boot()

	require.Len(t, gm.ctx.Resolutions, 1)
	assert.Equal(t, STAGE_NIGHT, gm.ctx.Resolutions[0].Stage)
	assert.Empty(t, gm.ctx.Resolutions[0].Deaths)
	assert.Equal(t, STAGE_DAY, gm.ctx.GameStage)
	assert.Contains(t, host.broadcastsOn(CHANNEL_GENERAL), "The sun rises. Nobody died tonight.")
}

func toDay(t *testing.T, rules Rules, seats ...seat) (*GameMachine, *recordingHost) {
	t.Helper()

	gm, host := bootNight(t, rules, seats...)
	require.NoError(t, endStage(gm, ""))
	require.Equal(t, STAGE_DAY, gm.ctx.GameStage)
	return gm, host
}

var dayTable = []seat{
	{"m", ROLE_MAFIA},
	{"c1", ROLE_CITIZEN},
	{"c2", ROLE_CITIZEN},
	{"c3", ROLE_CITIZEN},
	{"c4", ROLE_CITIZEN},
}

func TestDayVoteExecutesPlurality(t *testing.T) {
	gm, host := toDay(t, testRules(), dayTable...)

	require.NoError(t, submit(gm, "c1", ACTION_VOTE, "m"))
	require.NoError(t, submit(gm, "c2", ACTION_VOTE, "m"))
	require.NoError(t, submit(gm, "m", ACTION_VOTE, "c1"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.Equal(t, []Death{{PlayerID: "m", Cause: CAUSE_VOTE}}, res.Deaths)
	assert.Contains(t, host.broadcastsOn(CHANNEL_GENERAL), "M the Mafioso was executed by the village.")

	require.NotNil(t, gm.ctx.Verdict)
	assert.Equal(t, WINNER_INNOCENT, gm.ctx.Verdict.Winner)
	assert.Equal(t, STAGE_FINISHED, gm.ctx.GameStage)
}

func TestDayTieWithNoEliminationPolicy(t *testing.T) {
	gm, _ := toDay(t, testRules(), dayTable...)

	require.NoError(t, submit(gm, "c1", ACTION_VOTE, "m"))
	require.NoError(t, submit(gm, "m", ACTION_VOTE, "c1"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.Empty(t, res.Deaths)
	assert.Equal(t, []string{"m", "c1"}, res.Tied)
	assert.Equal(t, STAGE_NIGHT, gm.ctx.GameStage)
	assert.Equal(t, 2, gm.ctx.Round)
}

func TestDayTieWithRunoffPolicy(t *testing.T) {
	rules := testRules()
	rules.DayTiePolicy = TIE_POLICY_RUNOFF

	gm, _ := toDay(t, rules, dayTable...)

	require.NoError(t, submit(gm, "c1", ACTION_VOTE, "m"))
	require.NoError(t, submit(gm, "m", ACTION_VOTE, "c1"))
	require.NoError(t, endStage(gm, ""))

	require.Equal(t, STAGE_RUNOFF, gm.ctx.GameStage)
	assert.Equal(t, []string{"m", "c1"}, gm.ctx.RunoffCandidates)

	assert.ErrorIs(t, submit(gm, "c3", ACTION_VOTE, "c2"), ErrInvalidTarget)
	require.NoError(t, submit(gm, "c3", ACTION_VOTE, "m"))
	require.NoError(t, submit(gm, "c4", ACTION_VOTE, "m"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.Equal(t, STAGE_RUNOFF, res.Stage)
	assert.Equal(t, []string{"m"}, deadIDs(res))
	assert.Equal(t, STAGE_FINISHED, gm.ctx.GameStage)
}

func TestRunoffTieEndsWithoutElimination(t *testing.T) {
	rules := testRules()
	rules.DayTiePolicy = TIE_POLICY_RUNOFF

	gm, _ := toDay(t, rules, dayTable...)

	require.NoError(t, submit(gm, "c1", ACTION_VOTE, "m"))
	require.NoError(t, submit(gm, "m", ACTION_VOTE, "c1"))
	require.NoError(t, endStage(gm, ""))
	require.Equal(t, STAGE_RUNOFF, gm.ctx.GameStage)

	require.NoError(t, submit(gm, "c1", ACTION_VOTE, "m"))
	require.NoError(t, submit(gm, "m", ACTION_VOTE, "c1"))
	require.NoError(t, endStage(gm, ""))

	res := lastResolution(t, gm)
	assert.Empty(t, res.Deaths)
	assert.Equal(t, STAGE_NIGHT, gm.ctx.GameStage)
	assert.Empty(t, gm.ctx.RunoffCandidates)
}
