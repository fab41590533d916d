package task

import "testing"

func TestSortForDisplay_PriorityThenPosition(t *testing.T) {
	tasks := []Task{
		{ID: "a", Priority: PriorityLow, Position: 0},
		{ID: "b", Priority: PriorityHigh, Position: 5},
		{ID: "c", Priority: PriorityMedium, Position: 2},
		{ID: "d", Priority: PriorityHigh, Position: 1},
		{ID: "e", Priority: PriorityMedium, Position: 1},
	}
	SortForDisplay(tasks)

	want := []string{"d", "b", "e", "c", "a"}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, tasks[i].ID)
		}
	}
}

func TestSortForDisplay_UnknownPriorityRanksAsMedium(t *testing.T) {
	tasks := []Task{
		{ID: "a", Priority: Priority("urgent!!"), Position: 3},
		{ID: "b", Priority: PriorityMedium, Position: 1},
		{ID: "c", Priority: PriorityHigh, Position: 9},
	}
	SortForDisplay(tasks)

	if tasks[0].ID != "c" {
		t.Fatalf("expected high-priority task first, got %s", tasks[0].ID)
	}
	if tasks[1].ID != "b" || tasks[2].ID != "a" {
		t.Fatalf("expected unknown priority interleaved as medium by position, got %s, %s", tasks[1].ID, tasks[2].ID)
	}
}

func TestSortForDisplay_TiesBrokenByPositionNotInsertionOrder(t *testing.T) {
	forward := []Task{
		{ID: "x", Priority: PriorityMedium, Position: 2},
		{ID: "y", Priority: PriorityMedium, Position: 1},
	}
	reversed := []Task{
		{ID: "y", Priority: PriorityMedium, Position: 1},
		{ID: "x", Priority: PriorityMedium, Position: 2},
	}
	SortForDisplay(forward)
	SortForDisplay(reversed)

	for i := range forward {
		if forward[i].ID != reversed[i].ID {
			t.Fatalf("ordering depends on retrieval sequence at index %d", i)
		}
	}
}

func TestUpdateRequest_Empty(t *testing.T) {
	var r UpdateRequest
	if !r.Empty() {
		t.Fatal("zero update should be empty")
	}

	title := "new title"
	r.Title = &title
	if r.Empty() {
		t.Fatal("update with title should not be empty")
	}

	var clear *string
	r = UpdateRequest{AssignedDevID: &clear}
	if r.Empty() {
		t.Fatal("update clearing assignment should not be empty")
	}
}
