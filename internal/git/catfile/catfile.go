package catfile

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gitlab.com/gitlab-org/refgate/internal/git"
	"gitlab.com/gitlab-org/refgate/internal/git/gitcmd"
)

// infoCacheSize bounds the per-invocation object info cache. Pushes rarely
// touch more than a few thousand objects; anything beyond that gets
// re-queried.
const infoCacheSize = 4096

// ObjectInfo represents a header returned by `git cat-file --batch-check`.
type ObjectInfo struct {
	OID  git.ObjectID
	Type git.ObjectType
	Size int64
}

// NotFoundError is returned when an object does not exist in the
// repository.
type NotFoundError struct {
	OID git.ObjectID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("object not found: %s", e.OID)
}

// Reader provides access to objects of a single repository.
type Reader struct {
	runner *gitcmd.Runner
	info   *lru.Cache[git.ObjectID, ObjectInfo]
}

// NewReader returns a Reader backed by the given command runner.
func NewReader(runner *gitcmd.Runner) (*Reader, error) {
	cache, err := lru.New[git.ObjectID, ObjectInfo](infoCacheSize)
	if err != nil {
		return nil, err
	}
	return &Reader{runner: runner, info: cache}, nil
}

// Info looks up type and size of an object.
func (r *Reader) Info(ctx context.Context, oid git.ObjectID) (ObjectInfo, error) {
	if oid.IsZero() {
		return ObjectInfo{}, NotFoundError{OID: oid}
	}
	if info, ok := r.info.Get(oid); ok {
		return info, nil
	}

	out, err := r.runner.RunWithInput(ctx, gitcmd.SubCmd{
		Name:  "cat-file",
		Flags: []gitcmd.Flag{gitcmd.Option{Name: "--batch-check"}},
	}, []byte(oid.String()+"\n"))
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("object info for %s: %w", oid, err)
	}

	info, err := parseObjectInfo(strings.TrimSuffix(string(out), "\n"))
	if err != nil {
		return ObjectInfo{}, err
	}

	r.info.Add(oid, info)
	return info, nil
}

func parseObjectInfo(infoLine string) (ObjectInfo, error) {
	if strings.HasSuffix(infoLine, " missing") {
		return ObjectInfo{}, NotFoundError{OID: git.ObjectID(strings.TrimSuffix(infoLine, " missing"))}
	}

	info := strings.Split(infoLine, " ")
	if len(info) != 3 {
		return ObjectInfo{}, fmt.Errorf("invalid info line: %q", infoLine)
	}

	oid, err := git.NewObjectID(info[0])
	if err != nil {
		return ObjectInfo{}, err
	}

	objectSize, err := strconv.ParseInt(info[2], 10, 64)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("parse object size: %w", err)
	}

	return ObjectInfo{OID: oid, Type: git.ObjectType(info[1]), Size: objectSize}, nil
}

// Raw returns the canonical bytes of the object, exactly as they were
// hashed into the object store.
func (r *Reader) Raw(ctx context.Context, oid git.ObjectID) ([]byte, error) {
	info, err := r.Info(ctx, oid)
	if err != nil {
		return nil, err
	}

	out, err := r.runner.Run(ctx, gitcmd.SubCmd{
		Name: "cat-file",
		Args: []string{string(info.Type), oid.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", oid, err)
	}
	return out, nil
}

// Commit reads and parses a commit object's headers.
func (r *Reader) Commit(ctx context.Context, oid git.ObjectID) (*git.Commit, error) {
	raw, err := r.Raw(ctx, oid)
	if err != nil {
		return nil, err
	}
	return ParseCommit(oid, raw)
}

// ParseCommit extracts the parent list from the raw bytes of a commit
// object. Everything else in the header is skipped.
func ParseCommit(oid git.ObjectID, raw []byte) (*git.Commit, error) {
	commit := &git.Commit{ID: oid}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		value, ok := strings.CutPrefix(line, "parent ")
		if !ok {
			continue
		}
		parent, err := git.NewObjectID(value)
		if err != nil {
			return nil, fmt.Errorf("commit %s: %w", oid, err)
		}
		commit.Parents = append(commit.Parents, parent)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing commit %s: %w", oid, err)
	}

	return commit, nil
}

// CommitSignature extracts the detached signature and signed payload of a
// commit object. Both are empty when the commit is unsigned.
func (r *Reader) CommitSignature(ctx context.Context, oid git.ObjectID) ([]byte, []byte, error) {
	raw, err := r.Raw(ctx, oid)
	if err != nil {
		return nil, nil, err
	}
	signature, payload := ExtractCommitSignature(raw)
	return signature, payload, nil
}

// TagSignature extracts the detached signature and signed payload of an
// annotated tag object. The signature is empty when the tag is unsigned.
func (r *Reader) TagSignature(ctx context.Context, oid git.ObjectID) ([]byte, []byte, error) {
	raw, err := r.Raw(ctx, oid)
	if err != nil {
		return nil, nil, err
	}
	signature, payload := ExtractTagSignature(raw)
	return signature, payload, nil
}
