package progression

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mercadomaster/economy-engine/internal/achievement"
	"github.com/mercadomaster/economy-engine/internal/ledger"
	"github.com/mercadomaster/economy-engine/internal/model"
	"github.com/mercadomaster/economy-engine/internal/quiz"
	"github.com/mercadomaster/economy-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// recorder captures notifications.
type recorder struct {
	achievements []string
	states       int
}

func (r *recorder) PublishAchievement(rule achievement.Rule) {
	r.achievements = append(r.achievements, rule.ID)
}

func (r *recorder) PublishState(model.UserState) { r.states++ }

// failingStore accepts loads but rejects every save after the first.
type failingStore struct {
	*store.MemoryStore
	fail bool
}

func (f *failingStore) SaveState(ctx context.Context, id string, s model.UserState, j ...model.Transaction) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryStore.SaveState(ctx, id, s, j...)
}

func newTestController(t *testing.T) (*Controller, *store.MemoryStore, *recorder) {
	t.Helper()
	ms := store.NewMemoryStore()
	rec := &recorder{}
	c, err := New(context.Background(), ms, "default", rec)
	if err != nil {
		t.Fatalf("failed to create controller: %v", err)
	}
	c.now = func() time.Time { return fixedNow }
	return c, ms, rec
}

// --- Construction ---

func TestNew_CreatesAndPersistsFreshProfile(t *testing.T) {
	_, ms, _ := newTestController(t)

	saved, err := ms.LoadState(context.Background(), "default")
	if err != nil {
		t.Fatalf("expected profile to be saved: %v", err)
	}
	if !saved.Cash.Equal(model.StartingCash) {
		t.Errorf("expected starting cash, got %s", saved.Cash)
	}
}

func TestNew_LoadsExistingProfile(t *testing.T) {
	ms := store.NewMemoryStore()
	s := model.NewUserState()
	s.XP = 1234
	if err := ms.SaveState(context.Background(), "p1", s); err != nil {
		t.Fatal(err)
	}

	c, err := New(context.Background(), ms, "p1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Snapshot().XP != 1234 {
		t.Errorf("expected xp 1234, got %d", c.Snapshot().XP)
	}
}

// --- Levels ---

func TestLevel_Boundaries(t *testing.T) {
	cases := []struct {
		xp   int64
		want int64
	}{
		{0, 1},
		{499, 1},
		{500, 2},
		{999, 2},
		{1000, 3},
		{-5, 1},
	}
	for _, tc := range cases {
		if got := Level(tc.xp); got != tc.want {
			t.Errorf("Level(%d): expected %d, got %d", tc.xp, tc.want, got)
		}
	}
}

func TestLessonReward_LevelCrossing(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	out, err := c.ApplyLessonReward(ctx, LessonReward{XP: 499})
	if err != nil {
		t.Fatal(err)
	}
	if out.State.Level != 1 {
		t.Errorf("expected level 1 at 499 xp, got %d", out.State.Level)
	}
	if len(out.Unlocked) != 0 {
		t.Errorf("expected no unlocks, got %v", out.Unlocked)
	}

	out, err = c.ApplyLessonReward(ctx, LessonReward{XP: 1})
	if err != nil {
		t.Fatal(err)
	}
	if out.State.Level != 2 {
		t.Errorf("expected level 2 at 500 xp, got %d", out.State.Level)
	}
	if len(out.Unlocked) != 1 || out.Unlocked[0].ID != "level_up" {
		t.Fatalf("expected level_up to unlock, got %v", out.Unlocked)
	}
	if out.State.XP != 500+achievement.BonusXP {
		t.Errorf("expected bonus xp applied, got %d", out.State.XP)
	}
}

// --- Lessons and quests ---

func TestLessonReward_CoinsPathAndQuests(t *testing.T) {
	c, _, _ := newTestController(t)

	out, err := c.ApplyLessonReward(context.Background(), LessonReward{
		XP:             60,
		PathID:         model.PathStocks,
		LevelIncrement: 1,
		PerfectRun:     true,
		LessonID:       "stocks-1",
		Stars:          3,
	})
	if err != nil {
		t.Fatal(err)
	}

	s := out.State
	// 30 coins for the xp, 50 for the xp quest, 200 for the perfect quest.
	want := model.StartingCoins + 30 + 50 + 200
	if s.Coins != want {
		t.Errorf("expected %d coins, got %d", want, s.Coins)
	}
	if s.PathProgress[model.PathStocks] != 1 {
		t.Errorf("expected stocks progress 1, got %d", s.PathProgress[model.PathStocks])
	}
	if s.LevelRatings["stocks-1"] != 3 {
		t.Errorf("expected 3 stars, got %d", s.LevelRatings["stocks-1"])
	}

	for _, q := range s.DailyQuests {
		switch q.Type {
		case model.QuestXP, model.QuestPerfect:
			if !q.Completed {
				t.Errorf("expected quest %s completed", q.ID)
			}
		case model.QuestLessons:
			if q.Completed || q.Progress != 1 {
				t.Errorf("expected lessons quest at 1/2, got %d completed=%v", q.Progress, q.Completed)
			}
		}
	}
}

func TestLessonReward_CompletedQuestPaysOnce(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	first, _ := c.ApplyLessonReward(ctx, LessonReward{XP: 50})
	second, err := c.ApplyLessonReward(ctx, LessonReward{XP: 50})
	if err != nil {
		t.Fatal(err)
	}

	if got := second.State.Coins - first.State.Coins; got != 25 {
		t.Errorf("expected only 25 coins from the second lesson, got %d", got)
	}
	if second.State.DailyQuests[0].Progress != 50 {
		t.Errorf("expected completed quest to stop accumulating, got %d", second.State.DailyQuests[0].Progress)
	}
}

func TestLessonReward_RejectsNegative(t *testing.T) {
	c, _, _ := newTestController(t)
	before := c.Snapshot()

	_, err := c.ApplyLessonReward(context.Background(), LessonReward{XP: -10})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if c.Snapshot().XP != before.XP {
		t.Error("expected state unchanged")
	}
}

func TestResetDailyQuests(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()
	c.ApplyLessonReward(ctx, LessonReward{XP: 80})

	out, err := c.ResetDailyQuests(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range out.State.DailyQuests {
		if q.Progress != 0 || q.Completed {
			t.Errorf("expected quest %s reset, got %+v", q.ID, q)
		}
	}
	if out.State.LastLogin == nil || !out.State.LastLogin.Equal(fixedNow) {
		t.Errorf("expected last login %s, got %v", fixedNow, out.State.LastLogin)
	}
}

// --- Trading ---

func TestBuy_UnlocksFirstStepsOnce(t *testing.T) {
	c, ms, rec := newTestController(t)
	ctx := context.Background()

	out, err := c.Buy(ctx, "BTC", d(0.1), d(65000))
	if err != nil {
		t.Fatal(err)
	}
	if !out.State.Cash.Equal(d(3500)) {
		t.Errorf("expected cash 3500, got %s", out.State.Cash)
	}
	if out.Transaction == nil {
		t.Fatal("expected a transaction")
	}
	if len(out.Unlocked) != 1 || out.Unlocked[0].ID != "first_steps" {
		t.Fatalf("expected first_steps, got %v", out.Unlocked)
	}
	coins := out.State.Coins

	out, err = c.Buy(ctx, "ETH", d(0.1), d(3500))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Unlocked) != 0 {
		t.Errorf("expected no unlocks on second trade, got %v", out.Unlocked)
	}
	if out.State.Coins != coins {
		t.Errorf("expected bonus not re-granted, coins %d -> %d", coins, out.State.Coins)
	}

	n := 0
	for _, id := range out.State.UnlockedAchievements {
		if id == "first_steps" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("expected first_steps once, got %d", n)
	}
	if len(rec.achievements) != 1 {
		t.Errorf("expected one achievement notification, got %v", rec.achievements)
	}

	journal, err := ms.ListTransactions(ctx, "default", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(journal) != 2 || journal[0].Symbol != "ETH" {
		t.Errorf("expected 2 journal entries newest first, got %+v", journal)
	}
}

func TestBuy_InsufficientFundsLeavesState(t *testing.T) {
	c, _, rec := newTestController(t)
	before := c.Snapshot()

	out, err := c.Buy(context.Background(), "BTC", d(1), d(65000))
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !out.State.Cash.Equal(before.Cash) || len(out.State.Transactions) != 0 {
		t.Errorf("expected unchanged state, got cash %s", out.State.Cash)
	}
	if rec.states != 0 {
		t.Errorf("expected no notifications for a rejected trade, got %d", rec.states)
	}
}

func TestSettle_BonusXPCascadesIntoLevelUp(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	if _, err := c.ApplyLessonReward(ctx, LessonReward{XP: 400}); err != nil {
		t.Fatal(err)
	}
	out, err := c.Buy(ctx, "AAPL", d(1), d(180))
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, r := range out.Unlocked {
		ids = append(ids, r.ID)
	}
	if len(ids) != 2 || ids[0] != "first_steps" || ids[1] != "level_up" {
		t.Fatalf("expected [first_steps level_up], got %v", ids)
	}
	if out.State.Level != 2 {
		t.Errorf("expected level 2, got %d", out.State.Level)
	}

	latest, ok := c.LatestAchievement()
	if !ok || latest.ID != "level_up" {
		t.Errorf("expected latest level_up, got %v %v", latest.ID, ok)
	}
	c.ClearLatestAchievement()
	if _, ok := c.LatestAchievement(); ok {
		t.Error("expected latest achievement cleared")
	}
}

// --- Persistence failure ---

func TestApply_PersistFailureKeepsPreviousState(t *testing.T) {
	fs := &failingStore{MemoryStore: store.NewMemoryStore()}
	c, err := New(context.Background(), fs, "default", nil)
	if err != nil {
		t.Fatal(err)
	}
	fs.fail = true

	out, err := c.Buy(context.Background(), "BTC", d(0.1), d(65000))
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if !out.State.Cash.Equal(model.StartingCash) {
		t.Errorf("expected previous cash, got %s", out.State.Cash)
	}
	if len(c.Snapshot().UnlockedAchievements) != 0 {
		t.Error("expected no achievements after failed persist")
	}
}

// --- Hearts and items ---

func TestDeductHeart_FloorsAtZero(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	var out Outcome
	for i := 0; i < model.DefaultHearts+2; i++ {
		out, _ = c.DeductHeart(ctx)
	}
	if out.State.Hearts != 0 {
		t.Errorf("expected 0 hearts, got %d", out.State.Hearts)
	}
	if !out.OutOfHearts {
		t.Error("expected OutOfHearts")
	}
}

func TestRefillHearts(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()
	c.DeductHeart(ctx)

	out, err := c.RefillHearts(ctx, DefaultRefillCost)
	if err != nil {
		t.Fatal(err)
	}
	if out.State.Hearts != out.State.MaxHearts {
		t.Errorf("expected full hearts, got %d", out.State.Hearts)
	}
	if out.State.Coins != model.StartingCoins-DefaultRefillCost {
		t.Errorf("expected %d coins, got %d", model.StartingCoins-DefaultRefillCost, out.State.Coins)
	}

	if _, err := c.RefillHearts(ctx, DefaultRefillCost); !errors.Is(err, ErrInsufficientCoins) {
		t.Errorf("expected ErrInsufficientCoins, got %v", err)
	}
	if _, err := c.RefillHearts(ctx, -1); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSpendItem_InventoryThenCoins(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	// One skip in the starting inventory.
	out, err := c.SpendItem(ctx, ItemSkip)
	if err != nil {
		t.Fatal(err)
	}
	if out.State.Inventory.Skip != 0 || out.State.Coins != model.StartingCoins {
		t.Errorf("expected inventory consumed, got skip=%d coins=%d", out.State.Inventory.Skip, out.State.Coins)
	}

	out, err = c.SpendItem(ctx, ItemSkip)
	if err != nil {
		t.Fatal(err)
	}
	if out.State.Coins != model.StartingCoins-ItemCosts[ItemSkip] {
		t.Errorf("expected coins charged, got %d", out.State.Coins)
	}

	out, _ = c.SpendItem(ctx, ItemSkip)
	if _, err := c.SpendItem(ctx, ItemSkip); !errors.Is(err, ErrInsufficientCoins) {
		t.Errorf("expected ErrInsufficientCoins with %d coins, got %v", out.State.Coins, err)
	}

	if _, err := c.SpendItem(ctx, Item("teleport")); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("expected ErrUnknownItem, got %v", err)
	}
}

// --- Coins ---

func TestStakeAndUnstake(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	out, err := c.Stake(ctx, DefaultStake)
	if err != nil {
		t.Fatal(err)
	}
	if out.State.StakedCoins != DefaultStake || out.State.Coins != model.StartingCoins-DefaultStake {
		t.Errorf("unexpected stake result: staked=%d coins=%d", out.State.StakedCoins, out.State.Coins)
	}

	out, err = c.Unstake(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if out.State.StakedCoins != 0 || out.State.Coins != model.StartingCoins {
		t.Errorf("unexpected unstake result: staked=%d coins=%d", out.State.StakedCoins, out.State.Coins)
	}

	out, err = c.Unstake(ctx)
	if err != nil || out.State.Coins != model.StartingCoins {
		t.Errorf("expected no-op unstake, got coins=%d err=%v", out.State.Coins, err)
	}

	if _, err := c.Stake(ctx, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := c.Stake(ctx, 1_000_000); !errors.Is(err, ErrInsufficientCoins) {
		t.Errorf("expected ErrInsufficientCoins, got %v", err)
	}
}

func TestOpenChest_Idempotent(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	c.OpenChest(ctx, "chest-1")
	out, err := c.OpenChest(ctx, "chest-1")
	if err != nil {
		t.Fatal(err)
	}
	if out.State.Coins != model.StartingCoins+ChestReward {
		t.Errorf("expected one reward, got coins %d", out.State.Coins)
	}
	if len(out.State.OpenedChests) != 1 {
		t.Errorf("expected one opened chest, got %v", out.State.OpenedChests)
	}

	if _, err := c.OpenChest(ctx, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMineCoin(t *testing.T) {
	c, _, _ := newTestController(t)

	out, _ := c.MineCoin(context.Background())
	if out.State.Coins != model.StartingCoins+1 || out.State.MinedCoins != 1 {
		t.Errorf("expected one mined coin, got coins=%d mined=%d", out.State.Coins, out.State.MinedCoins)
	}
}

// --- Preferences ---

func TestToggleTheme_Cycles(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	want := []model.Theme{model.ThemeCyberpunk, model.ThemeTerminal, model.ThemeDefault}
	for _, w := range want {
		out, _ := c.ToggleTheme(ctx)
		if out.State.Theme != w {
			t.Errorf("expected theme %s, got %s", w, out.State.Theme)
		}
	}
}

func TestAddBookmark_Dedupes(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	c.AddBookmark(ctx, "ETF")
	out, _ := c.AddBookmark(ctx, " ETF ")
	if len(out.State.Bookmarks) != 1 {
		t.Errorf("expected one bookmark, got %v", out.State.Bookmarks)
	}
	if _, err := c.AddBookmark(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateNotes(t *testing.T) {
	c, ms, _ := newTestController(t)

	c.UpdateNotes(context.Background(), "buy low")
	saved, _ := ms.LoadState(context.Background(), "default")
	if saved.QuickNotes != "buy low" {
		t.Errorf("expected notes persisted, got %q", saved.QuickNotes)
	}
}

// --- Quiz ---

func TestSubmitAnswer_RecordsStatsAndHearts(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()

	q := quiz.Ordering{
		Base:         quiz.Base{Text: "Order the steps"},
		CorrectOrder: []string{"A", "B", "C"},
	}

	ok, out, err := c.SubmitAnswer(ctx, q, quiz.OrderingAnswer{Sequence: []string{"A", "B", "C"}})
	if err != nil || !ok {
		t.Fatalf("expected correct answer, got %v %v", ok, err)
	}
	if out.State.QuizStats.Combo != 1 || out.State.Hearts != model.DefaultHearts {
		t.Errorf("unexpected state after correct answer: %+v hearts=%d", out.State.QuizStats, out.State.Hearts)
	}

	ok, out, err = c.SubmitAnswer(ctx, q, quiz.OrderingAnswer{Sequence: []string{"B", "A", "C"}})
	if err != nil || ok {
		t.Fatalf("expected wrong answer, got %v %v", ok, err)
	}
	stats := out.State.QuizStats
	if stats.Answered != 2 || stats.Correct != 1 || stats.Combo != 0 || stats.BestCombo != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if out.State.Hearts != model.DefaultHearts-1 {
		t.Errorf("expected a heart lost, got %d", out.State.Hearts)
	}
}

func TestSubmitAnswer_MalformedRecordsNothing(t *testing.T) {
	c, _, _ := newTestController(t)

	q := quiz.MultipleChoice{Base: quiz.Base{Text: "No key"}, Options: []string{"a", "b"}}
	_, out, err := c.SubmitAnswer(context.Background(), q, quiz.ChoiceAnswer{Selected: 0})
	if !errors.Is(err, quiz.ErrMalformedQuestion) {
		t.Fatalf("expected ErrMalformedQuestion, got %v", err)
	}
	if out.State.QuizStats.Answered != 0 {
		t.Errorf("expected nothing recorded, got %+v", out.State.QuizStats)
	}
}
