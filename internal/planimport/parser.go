package planimport

import (
	"time"

	"github.com/meltforce/trainingdiary/internal/models"
)

// Parser turns an uploaded plan file into a ParsedTrainingPlan.
// The zero value is ready to use.
type Parser struct {
	// now overrides the clock used for the parse deadline.
	now func() time.Time
}

func (p *Parser) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// Parse reads data as the format implied by filename and builds the plan.
func Parse(data []byte, filename string) (*models.ParsedTrainingPlan, error) {
	var p Parser
	return p.Parse(data, filename)
}

// Parse reads data as the format implied by filename and builds the plan.
// Any failure is an *ImportError unless the file could not be decoded at all.
func (p *Parser) Parse(data []byte, filename string) (*models.ParsedTrainingPlan, error) {
	reader, err := ReaderFor(DetectFileKind(filename))
	if err != nil {
		return nil, err
	}
	started := p.clock()

	sources, err := reader.ReadGrids(data)
	if err != nil {
		return nil, err
	}

	run := &parseRun{started: started, clock: p.clock, builder: newPlanBuilder()}
	for _, src := range sources {
		if err := run.checkDeadline(src.Label); err != nil {
			return nil, err
		}
		if err := run.scan(src); err != nil {
			return nil, err
		}
	}
	return run.builder.build(PlanNameFromFilename(filename))
}

// parseRun is the state of one Parse call.
type parseRun struct {
	started time.Time
	clock   func() time.Time
	builder *planBuilder
}

func (r *parseRun) checkDeadline(label string) error {
	if r.clock().Sub(r.started) > MaxParseDuration {
		return &ImportError{Code: CodeDeadlineExceeded, Source: label, Limit: int(MaxParseDuration / time.Millisecond)}
	}
	return nil
}

// scan folds the rows of one source into the builder.
func (r *parseRun) scan(src GridSource) error {
	headerIdx, header, ok := findHeader(src.Rows)
	if !ok {
		if src.SkipIfUnheaded {
			return nil
		}
		return &ImportError{Code: CodeHeaderNotFound, Source: src.Label}
	}

	var ctx ScanContext
	for i := headerIdx + 1; i < len(src.Rows); i++ {
		if i%DeadlineCheckEvery == 0 {
			if err := r.checkDeadline(src.Label); err != nil {
				return err
			}
		}
		row := src.Rows[i]

		next, ex, err := step(ctx, header, row.Cells)
		if err != nil {
			return atRow(err, src.Label, row.Line)
		}
		ctx = next
		if ex == nil {
			continue
		}
		if err := r.builder.add(ctx.Week, *ctx.Day, ex); err != nil {
			return err
		}
	}
	return nil
}
