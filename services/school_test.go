package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "online-admission/errors"
	"online-admission/models"
	"online-admission/services/kafka"
	"online-admission/services/placement"
	"online-admission/utils"
)

func TestCreateSchoolValidates(t *testing.T) {
	f := newFixture(t)
	svc := NewSchoolService(f.store, f.storage, nil, f.clock)
	ctx := context.Background()

	err := svc.CreateSchool(ctx, &models.School{SchoolID: " ", Name: "X"})
	assert.Equal(t, apperrors.Invalid, apperrors.KindOf(err))

	school := &models.School{SchoolID: "s2", Name: "Adisadel College", Email: "info@adisadel.edu.gh"}
	require.NoError(t, svc.CreateSchool(ctx, school))
	assert.Equal(t, fixedNow, school.CreatedAt)

	err = svc.CreateSchool(ctx, &models.School{SchoolID: "s2", Name: "Again"})
	assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))
}

func TestSaveAdmissionKeepsDocuments(t *testing.T) {
	f := newFixture(t)
	svc := NewSchoolService(f.store, f.storage, nil, f.clock)
	ctx := context.Background()

	_, err := svc.UploadDocument(ctx, "s1", utils.DocumentUndertaking, strings.NewReader("pdf"), "application/pdf")
	require.NoError(t, err)

	require.NoError(t, svc.SaveAdmission(ctx, &models.AdmissionConfig{SchoolID: "s1", Year: "2027", PlacementFee: 200}))

	cfg, err := svc.GetAdmission(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "2027", cfg.Year)
	assert.Equal(t, utils.DefaultCurrency, cfg.Currency)
	assert.Equal(t, "schools/s1/documents/undertaking.pdf", cfg.UndertakingKey)

	err = svc.SaveAdmission(ctx, &models.AdmissionConfig{SchoolID: "s1"})
	assert.Equal(t, apperrors.Invalid, apperrors.KindOf(err))

	err = svc.SaveAdmission(ctx, &models.AdmissionConfig{SchoolID: "ghost", Year: "2026"})
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
}

func TestUploadDocumentNeedsAdmission(t *testing.T) {
	f := newFixture(t)
	svc := NewSchoolService(f.store, f.storage, nil, f.clock)
	ctx := context.Background()
	require.NoError(t, f.store.CreateSchool(ctx, &models.School{SchoolID: "s2", Name: "New School"}))

	_, err := svc.UploadDocument(ctx, "s2", utils.DocumentProspectus, strings.NewReader("pdf"), "application/pdf")
	assert.Equal(t, apperrors.FailedPrecondition, apperrors.KindOf(err))
}

func TestCreateProgram(t *testing.T) {
	f := newFixture(t)
	svc := NewSchoolService(f.store, f.storage, nil, f.clock)
	ctx := context.Background()

	require.NoError(t, svc.CreateProgram(ctx, &models.Program{SchoolID: "s1", ProgramID: "ART", Name: "General Arts", EnrolledCount: 99}))
	programs, err := svc.ListPrograms(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, programs, 2)
	for _, p := range programs {
		if p.ProgramID == "ART" {
			assert.Zero(t, p.EnrolledCount)
		}
	}

	err = svc.CreateProgram(ctx, &models.Program{SchoolID: "s1", ProgramID: "ART", Name: "Dup"})
	assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))

	err = svc.CreateProgram(ctx, &models.Program{SchoolID: "s1", Name: "No id"})
	assert.Equal(t, apperrors.Invalid, apperrors.KindOf(err))
}

const placementCSV = "JHS Index No,First Name,Last Name,Gender,Program,Status,Aggregate of Best Six\n" +
	"GH001,Ama,Mensah,Female,General Science,Boarding,8\n" +
	"GH002,Kwame,Asante,Male,General Science,Day,10\n" +
	"GH003,Efua,Owusu,Female,Visual Arts,day,x\n"

func TestImportPlacementNotifiesAdmin(t *testing.T) {
	out := captureOutbox(t, false)
	f := newFixture(t)
	importer := placement.NewImporter(f.store,
		placement.WithClock(f.clock),
		placement.WithNotifier(NewImportNotifier(f.store)))
	svc := NewSchoolService(f.store, f.storage, importer, f.clock)
	ctx := context.Background()

	res, err := svc.ImportPlacement(ctx, placement.Request{
		SchoolID: "s1",
		Actor:    "head@mfantsipim.edu.gh",
		Client:   placement.Client{NetworkAddress: "10.0.0.1", Platform: PlatformDesktop},
		Filename: "placement.csv",
		Body:     strings.NewReader(placementCSV),
	})
	require.NoError(t, err)
	assert.Equal(t, placement.StateDone, res.State)
	assert.Equal(t, 2, res.Committed)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 2, res.FirstAdmissionNumber)
	assert.Equal(t, 3, res.LastAdmissionNumber)

	events := out.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "admissions.placements", events[0].Topic)
	assert.Equal(t, "s1", events[0].Key)
	assert.Equal(t, kafka.EventPlacementImported, events[0].Value["event"])
	assert.Equal(t, 2, events[0].Value["count"])

	emails := out.Emails()
	require.Len(t, emails, 1)
	assert.Equal(t, "head@mfantsipim.edu.gh", emails[0].To)
	assert.Contains(t, emails[0].Subject, "2 students imported")

	logs, err := svc.ListLogs(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 2, logs[0].Count)
	assert.Equal(t, "10.0.0.1", logs[0].NetworkAddress)
}

func TestImportPlacementUnknownSchool(t *testing.T) {
	f := newFixture(t)
	svc := NewSchoolService(f.store, f.storage, placement.NewImporter(f.store), f.clock)

	res, err := svc.ImportPlacement(context.Background(), placement.Request{
		SchoolID: "ghost", Actor: "admin", Filename: "p.csv", Body: strings.NewReader(placementCSV),
	})
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
	assert.Equal(t, placement.StateFailed, res.State)
}

func TestExportStudents(t *testing.T) {
	captureOutbox(t, false)
	f := newFixture(t)
	importer := placement.NewImporter(f.store, placement.WithClock(f.clock))
	svc := NewSchoolService(f.store, f.storage, importer, f.clock)
	ctx := context.Background()

	_, err := svc.ImportPlacement(ctx, placement.Request{
		SchoolID: "s1", Actor: "admin", Filename: "p.csv", Body: strings.NewReader(placementCSV),
	})
	require.NoError(t, err)

	buf, err := svc.ExportStudents(ctx, models.StudentFilter{SchoolID: "s1", Limit: 1})
	require.NoError(t, err)

	wb, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(rosterSheet)
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, "Admission No", rows[0][0])
	assert.Equal(t, []string{"1", "GH001", "Ama", "Mensah"}, rows[1][:4])
	assert.Equal(t, "General Science", rows[2][5])
	assert.Equal(t, "day", rows[2][6])
	assert.Equal(t, "", rows[3][5])
	assert.Equal(t, "2026", rows[3][11])
}
