package utils

import (
	"bytes"
	"fmt"

	"github.com/ExQueueSee/task-manager-web-app-sub000/models"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const exportSheet = "Tasks"

// ExportTasksToExcel pravi xlsx izveštaj sa kolonama: naslov, opis, status,
// ime zaduženog i formatiran rok. owners mapira ID vlasnika na korisnika.
func ExportTasksToExcel(tasks []models.Task, owners map[primitive.ObjectID]models.User) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %v", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Title", "Description", "Status", "Assignee", "Due Date"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, task := range tasks {
		assignee := ""
		if task.Owner != nil {
			if owner, ok := owners[*task.Owner]; ok {
				assignee = owner.DisplayName()
			}
		}
		dueDate := ""
		if task.DueDate != nil {
			dueDate = task.DueDate.Format("02 Jan 2006 15:04")
		}

		values := []interface{}{task.Title, task.Description, string(task.Status), assignee, dueDate}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %v", err)
	}
	return buf, nil
}
