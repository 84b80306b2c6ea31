package chat

import (
	"context"
	"converse-backend/dao"
	"converse-backend/model"
	"fmt"
	"testing"
)

func TestBuildWindow_SliceKeepsNewestTurns(t *testing.T) {
	openTestDB(t)
	record := seedChat(t)

	for i := 0; i < 4; i++ {
		seedPair(t, record, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), 10)
	}
	currentUser, _ := seedPair(t, record, "current", "", 0)

	opts := model.AssistantOptions{SummaryMode: model.SummaryModeSlice, MessageCount: 2}
	sum := &stubSummarizer{}
	window, err := BuildWindow(context.Background(), record, &model.Assistant{AssistantID: "asst-1"}, "m1", opts, sum)
	if err != nil {
		t.Fatalf("build window: %v", err)
	}

	if window.UserTurn.ID != currentUser.ID {
		t.Fatalf("wrong user turn: %d", window.UserTurn.ID)
	}
	if window.AssistantTurn.Role != model.RoleAssistant {
		t.Fatalf("wrong assistant turn role: %s", window.AssistantTurn.Role)
	}
	// 2*messageCount rows fetched, minus the current pair
	if len(window.History) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(window.History))
	}
	if window.History[0].Content != "q3" || window.History[1].Content != "a3" {
		t.Fatalf("expected newest prior pair, got %q / %q", window.History[0].Content, window.History[1].Content)
	}
	if sum.calls != 0 {
		t.Fatalf("slice mode must not summarize")
	}
}

func TestBuildWindow_CompressUnderBudgetUntouched(t *testing.T) {
	openTestDB(t)
	record := seedChat(t)

	seedPair(t, record, "q0", "a0", 50)
	seedPair(t, record, "current", "", 0)

	opts := model.AssistantOptions{SummaryMode: model.SummaryModeCompress, MaxContextTokens: 100}
	sum := &stubSummarizer{}
	window, err := BuildWindow(context.Background(), record, &model.Assistant{AssistantID: "asst-1"}, "m1", opts, sum)
	if err != nil {
		t.Fatalf("build window: %v", err)
	}

	if sum.calls != 0 {
		t.Fatalf("under-budget history must not be summarized")
	}
	if len(window.History) != 2 {
		t.Fatalf("expected full history, got %d rows", len(window.History))
	}
}

func TestBuildWindow_CompressRetainsNewestPair(t *testing.T) {
	openTestDB(t)
	record := seedChat(t)

	seedPair(t, record, "q0", "a0", 200)
	retainedUser, _ := seedPair(t, record, "q1", "a1", 500)
	seedPair(t, record, "current", "", 0)

	opts := model.AssistantOptions{SummaryMode: model.SummaryModeCompress, MaxContextTokens: 100}
	sum := &stubSummarizer{summary: "rolled up", usage: model.TokenUsage{TotalTokens: 42}}
	window, err := BuildWindow(context.Background(), record, &model.Assistant{AssistantID: "asst-1"}, "m1", opts, sum)
	if err != nil {
		t.Fatalf("build window: %v", err)
	}

	if sum.calls != 1 {
		t.Fatalf("expected one summarizer call, got %d", sum.calls)
	}
	if len(sum.gotMessages) != 2 || sum.gotMessages[0].Content != "q0" {
		t.Fatalf("expected oldest pair to be compressed, got %d rows", len(sum.gotMessages))
	}

	// newest prior pair survives, anchored with the fresh summary
	if len(window.History) != 2 || window.History[0].ID != retainedUser.ID {
		t.Fatalf("expected retained pair, got %d rows", len(window.History))
	}
	if window.History[0].PreviousSummary != "rolled up" {
		t.Fatalf("in-memory anchor missing summary")
	}

	anchor, err := dao.GetMessageByID(retainedUser.ID)
	if err != nil {
		t.Fatalf("get anchor: %v", err)
	}
	if anchor.PreviousSummary != "rolled up" {
		t.Fatalf("summary not persisted on anchor: %q", anchor.PreviousSummary)
	}

	var ledgerRows []model.UsageRecord
	if err := dao.DB.Where("chat_id = ? AND task = ?", record.ChatID, model.UsageTaskCompress).Find(&ledgerRows).Error; err != nil {
		t.Fatalf("query ledger: %v", err)
	}
	if len(ledgerRows) != 1 || ledgerRows[0].TotalTokens != 42 {
		t.Fatalf("expected one compress ledger row, got %+v", ledgerRows)
	}
}

func TestBuildWindow_CompressSinglePairAnchorsOnUserTurn(t *testing.T) {
	openTestDB(t)
	record := seedChat(t)

	seedPair(t, record, "q0", "a0", 500)
	currentUser, _ := seedPair(t, record, "current", "", 0)

	opts := model.AssistantOptions{SummaryMode: model.SummaryModeCompress, MaxContextTokens: 100}
	sum := &stubSummarizer{summary: "rolled up"}
	window, err := BuildWindow(context.Background(), record, &model.Assistant{AssistantID: "asst-1"}, "m1", opts, sum)
	if err != nil {
		t.Fatalf("build window: %v", err)
	}

	if len(window.History) != 0 {
		t.Fatalf("expected empty history, got %d rows", len(window.History))
	}
	if window.UserTurn.PreviousSummary != "rolled up" {
		t.Fatalf("summary not attached to current user turn")
	}

	anchor, err := dao.GetMessageByID(currentUser.ID)
	if err != nil {
		t.Fatalf("get anchor: %v", err)
	}
	if anchor.PreviousSummary != "rolled up" {
		t.Fatalf("summary not persisted: %q", anchor.PreviousSummary)
	}
}

func TestBuildWindow_CompressResumesFromAnchor(t *testing.T) {
	openTestDB(t)
	record := seedChat(t)

	seedPair(t, record, "old", "old answer", 500)
	anchorUser, _ := seedPair(t, record, "anchored", "anchored answer", 50)
	if err := dao.SetPreviousSummary(anchorUser.ID, "earlier summary"); err != nil {
		t.Fatalf("set summary: %v", err)
	}
	seedPair(t, record, "current", "", 0)

	opts := model.AssistantOptions{SummaryMode: model.SummaryModeCompress, MaxContextTokens: 100}
	sum := &stubSummarizer{}
	window, err := BuildWindow(context.Background(), record, &model.Assistant{AssistantID: "asst-1"}, "m1", opts, sum)
	if err != nil {
		t.Fatalf("build window: %v", err)
	}

	// rows before the anchor are already folded into its summary
	if len(window.History) != 2 || window.History[0].ID != anchorUser.ID {
		t.Fatalf("expected history to start at the anchor, got %d rows", len(window.History))
	}
	if sum.calls != 0 {
		t.Fatalf("under-budget tail must not be summarized")
	}
}

func TestBuildWindow_SummarizerFailureProceedsUncompressed(t *testing.T) {
	openTestDB(t)
	record := seedChat(t)

	seedPair(t, record, "q0", "a0", 200)
	seedPair(t, record, "q1", "a1", 500)
	seedPair(t, record, "current", "", 0)

	opts := model.AssistantOptions{SummaryMode: model.SummaryModeCompress, MaxContextTokens: 100}
	sum := &stubSummarizer{err: fmt.Errorf("task model unavailable")}
	window, err := BuildWindow(context.Background(), record, &model.Assistant{AssistantID: "asst-1"}, "m1", opts, sum)
	if err != nil {
		t.Fatalf("build window: %v", err)
	}

	if len(window.History) != 4 {
		t.Fatalf("expected full over-budget history, got %d rows", len(window.History))
	}

	var count int64
	if err := dao.DB.Model(&model.Message{}).
		Where("chat_id = ? AND previous_summary <> ''", record.ChatID).
		Count(&count).Error; err != nil {
		t.Fatalf("count anchors: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed summarization must not persist a summary")
	}
}
