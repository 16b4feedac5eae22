package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuningstudio/tuning/internal/query"
	"github.com/tuningstudio/tuning/pkg/client"
	"github.com/tuningstudio/tuning/pkg/domain"
)

type forumLevel int

const (
	forumLevelCategories forumLevel = iota
	forumLevelTopics
	forumLevelTopic
)

// forumState is what the keyboard is driving inside a level.
type forumState int

const (
	forumBrowsing forumState = iota
	forumComposing            // new topic form
	forumReplying             // reply input under the posts
	forumDeleting             // delete confirmation for the selected post
)

type forumModel struct {
	svc   *Services
	level forumLevel
	state forumState

	categories []domain.ForumCategory
	catCursor  int

	category    *domain.ForumCategory
	topics      []domain.Topic
	topicCursor int

	topic      *domain.TopicDetail
	postCursor int
	likers     []domain.Like
	likersOf   int64 // post the likers belong to

	compose formModel
	reply   string

	loading   bool
	sending   bool
	err       error
	statusMsg string
	width     int
	height    int
}

type forumCategoriesLoadedMsg struct {
	categories []domain.ForumCategory
	err        error
}

type topicsLoadedMsg struct {
	categoryID int64
	topics     []domain.Topic
	err        error
}

type topicLoadedMsg struct {
	topic *domain.TopicDetail
	err   error
}

type topicCreatedMsg struct {
	topic *domain.Topic
	err   error
}

type postCreatedMsg struct {
	topicID int64
	err     error
}

type postLikedMsg struct {
	postID int64
	result *domain.LikeResult
	err    error
}

type postLikesLoadedMsg struct {
	postID int64
	likes  []domain.Like
	err    error
}

type postDeletedMsg struct {
	postID int64
	err    error
}

type topicModeratedMsg struct {
	action string
	err    error
}

// showPeekMsg asks the app to open the profile card for a user.
type showPeekMsg struct {
	userID int64
}

func newForumModel(svc *Services) forumModel {
	return forumModel{svc: svc, loading: true, compose: newTopicForm()}
}

func newTopicForm() formModel {
	return newForm("NEW TOPIC",
		formField{key: "title", label: "title", placeholder: "what is it about"},
		formField{key: "content", label: "content", placeholder: "enter for newline, ctrl+s to post", multiline: true},
	)
}

func (m forumModel) Init() tea.Cmd {
	return m.loadCategories()
}

func (m forumModel) loadCategories() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		cats, err := fetch(svc, "forum_categories", svc.Client.ListForumCategories)
		return forumCategoriesLoadedMsg{categories: cats, err: err}
	}
}

func (m forumModel) loadTopics(categoryID int64) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		topics, err := fetch(svc, query.Key("topics", categoryID), func(ctx context.Context) ([]domain.Topic, error) {
			return svc.Client.ListTopics(ctx, categoryID)
		})
		return topicsLoadedMsg{categoryID: categoryID, topics: topics, err: err}
	}
}

func (m forumModel) loadTopic(id int64) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		t, err := fetch(svc, query.Key("topic", id), func(ctx context.Context) (*domain.TopicDetail, error) {
			return svc.Client.GetTopic(ctx, id)
		})
		return topicLoadedMsg{topic: t, err: err}
	}
}

func (m forumModel) Update(msg tea.Msg) (forumModel, tea.Cmd) {
	switch msg := msg.(type) {
	case forumCategoriesLoadedMsg:
		m.loading = false
		m.categories = msg.categories
		m.err = msg.err
		m.catCursor = clampCursor(m.catCursor, len(m.categories))
		return m, nil

	case topicsLoadedMsg:
		if m.category == nil || msg.categoryID != m.category.ID {
			return m, nil
		}
		m.loading = false
		m.topics = msg.topics
		m.err = msg.err
		m.topicCursor = clampCursor(m.topicCursor, len(m.topics))
		return m, nil

	case topicLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.topic = msg.topic
			m.postCursor = clampCursor(m.postCursor, len(msg.topic.Posts))
		}
		return m, nil

	case topicCreatedMsg:
		if msg.err != nil {
			m.compose.ApplyError(msg.err)
			return m, nil
		}
		m.state = forumBrowsing
		m.compose = newTopicForm()
		m.statusMsg = "topic posted"
		m.svc.invalidate("forum_categories", query.Key("topics", msg.topic.Category))
		if m.category != nil {
			m.loading = true
			return m, m.loadTopics(m.category.ID)
		}
		return m, nil

	case postCreatedMsg:
		m.sending = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("reply failed: %v", msg.err)
			return m, nil
		}
		m.state = forumBrowsing
		m.reply = ""
		m.statusMsg = "reply posted"
		m.svc.invalidate(query.Key("topic", msg.topicID))
		if m.topic != nil {
			m.svc.invalidate(query.Key("topics", m.topic.Category))
			m.postCursor = len(m.topic.Posts) // lands on the new post once loaded
		}
		return m, m.loadTopic(msg.topicID)

	case postLikedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("like failed: %v", msg.err)
			return m, nil
		}
		if m.topic != nil {
			for i := range m.topic.Posts {
				if m.topic.Posts[i].ID == msg.postID {
					m.topic.Posts[i].IsLiked = msg.result.Liked
					m.topic.Posts[i].LikesCount = msg.result.LikesCount
				}
			}
			m.svc.invalidate(query.Key("topic", m.topic.ID), query.Key("post_likes", msg.postID))
			if m.likersOf == msg.postID {
				m.likers, m.likersOf = nil, 0
			}
		}
		return m, nil

	case postLikesLoadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("likes failed: %v", msg.err)
			return m, nil
		}
		m.likers = msg.likes
		m.likersOf = msg.postID
		return m, nil

	case postDeletedMsg:
		m.state = forumBrowsing
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("delete failed: %v", msg.err)
			return m, nil
		}
		m.statusMsg = "post deleted"
		if m.topic != nil {
			posts := m.topic.Posts[:0:0]
			for _, p := range m.topic.Posts {
				if p.ID != msg.postID {
					posts = append(posts, p)
				}
			}
			m.topic.Posts = posts
			m.postCursor = clampCursor(m.postCursor, len(posts))
			m.svc.invalidate(query.Key("topic", m.topic.ID), query.Key("topics", m.topic.Category))
		}
		return m, nil

	case topicModeratedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			return m, nil
		}
		if m.topic != nil {
			switch msg.action {
			case "pin":
				m.topic.IsPinned = !m.topic.IsPinned
			case "lock":
				m.topic.IsLocked = !m.topic.IsLocked
			}
			m.svc.invalidate(query.Key("topic", m.topic.ID), query.Key("topics", m.topic.Category))
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		switch m.state {
		case forumComposing:
			return m.updateCompose(msg)
		case forumReplying:
			return m.updateReply(msg)
		case forumDeleting:
			return m.updateDeleting(msg)
		}
		switch m.level {
		case forumLevelTopic:
			return m.updateTopic(msg)
		case forumLevelTopics:
			return m.updateTopics(msg)
		default:
			return m.updateCategories(msg)
		}
	}
	return m, nil
}

func (m forumModel) updateCategories(msg tea.KeyMsg) (forumModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.catCursor < len(m.categories)-1 {
			m.catCursor++
		}
	case "k", "up":
		if m.catCursor > 0 {
			m.catCursor--
		}
	case "enter":
		if m.catCursor < len(m.categories) {
			c := m.categories[m.catCursor]
			m.category = &c
			m.level = forumLevelTopics
			m.topics = nil
			m.topicCursor = 0
			m.loading = true
			m.err = nil
			return m, m.loadTopics(c.ID)
		}
	case "r":
		m.loading = true
		m.svc.invalidate("forum_categories")
		return m, m.loadCategories()
	}
	return m, nil
}

func (m forumModel) updateTopics(msg tea.KeyMsg) (forumModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.topicCursor < len(m.topics)-1 {
			m.topicCursor++
		}
	case "k", "up":
		if m.topicCursor > 0 {
			m.topicCursor--
		}
	case "enter":
		if m.topicCursor < len(m.topics) {
			t := m.topics[m.topicCursor]
			m.level = forumLevelTopic
			m.topic = &domain.TopicDetail{Topic: t}
			m.postCursor = 0
			m.loading = true
			m.err = nil
			return m, m.loadTopic(t.ID)
		}
	case "n":
		if m.svc.currentUser() == nil {
			m.statusMsg = "sign in to start a topic (i)"
			return m, nil
		}
		m.state = forumComposing
	case "esc":
		m.level = forumLevelCategories
		m.err = nil
	case "r":
		if m.category != nil {
			m.loading = true
			m.svc.invalidate(query.Key("topics", m.category.ID))
			return m, m.loadTopics(m.category.ID)
		}
	}
	return m, nil
}

func (m forumModel) updateTopic(msg tea.KeyMsg) (forumModel, tea.Cmd) {
	if m.topic == nil {
		if msg.String() == "esc" {
			m.level = forumLevelTopics
		}
		return m, nil
	}
	me := m.svc.currentUser()
	post := m.selectedPost()

	switch msg.String() {
	case "j", "down":
		if m.postCursor < len(m.topic.Posts)-1 {
			m.postCursor++
		}
	case "k", "up":
		if m.postCursor > 0 {
			m.postCursor--
		}
	case "esc":
		m.level = forumLevelTopics
		m.err = nil
	case "c":
		switch {
		case me == nil:
			m.statusMsg = "sign in to reply (i)"
		case m.topic.IsLocked:
			m.statusMsg = "topic is locked"
		default:
			m.state = forumReplying
		}
	case "l":
		if me == nil {
			m.statusMsg = "sign in to like posts (i)"
			return m, nil
		}
		if post != nil {
			svc, id := m.svc, post.ID
			return m, func() tea.Msg {
				var res *domain.LikeResult
				err := mutation(func(ctx context.Context) error {
					var err error
					res, err = svc.Client.TogglePostLike(ctx, id)
					return err
				})
				return postLikedMsg{postID: id, result: res, err: err}
			}
		}
	case "w":
		if post != nil {
			svc, id := m.svc, post.ID
			return m, func() tea.Msg {
				likes, err := fetch(svc, query.Key("post_likes", id), func(ctx context.Context) ([]domain.Like, error) {
					return svc.Client.ListPostLikes(ctx, id)
				})
				return postLikesLoadedMsg{postID: id, likes: likes, err: err}
			}
		}
	case "p":
		if post != nil && post.Author != nil {
			id := post.Author.ID
			return m, func() tea.Msg { return showPeekMsg{userID: id} }
		}
		if post == nil && m.topic.Author != nil {
			id := m.topic.Author.ID
			return m, func() tea.Msg { return showPeekMsg{userID: id} }
		}
	case "x":
		if post != nil && canDeletePost(me, *post) {
			m.state = forumDeleting
		}
	case "P":
		if me.CanModerate() {
			return m, m.moderate("pin", m.svc.Client.TogglePin)
		}
	case "L":
		if me.CanModerate() {
			return m, m.moderate("lock", m.svc.Client.ToggleLock)
		}
	case "r":
		m.loading = true
		m.svc.invalidate(query.Key("topic", m.topic.ID))
		return m, m.loadTopic(m.topic.ID)
	}
	return m, nil
}

func canDeletePost(me *domain.User, p domain.Post) bool {
	if me == nil {
		return false
	}
	return me.CanModerate() || (p.Author != nil && p.Author.ID == me.ID)
}

func (m forumModel) moderate(action string, call func(context.Context, int64) error) tea.Cmd {
	id := m.topic.ID
	return func() tea.Msg {
		err := mutation(func(ctx context.Context) error { return call(ctx, id) })
		return topicModeratedMsg{action: action, err: err}
	}
}

func (m forumModel) selectedPost() *domain.Post {
	if m.topic == nil || m.postCursor >= len(m.topic.Posts) {
		return nil
	}
	return &m.topic.Posts[m.postCursor]
}

func (m forumModel) updateCompose(msg tea.KeyMsg) (forumModel, tea.Cmd) {
	var act formAction
	m.compose, act = m.compose.Update(msg)
	switch act {
	case formCancel:
		m.state = forumBrowsing
		m.compose = newTopicForm()
	case formSubmit:
		m.compose.ClearErrors()
		if !m.compose.Require("title", "content") || m.category == nil {
			return m, nil
		}
		m.compose.submitting = true
		svc := m.svc
		req := client.CreateTopicRequest{
			Category: m.category.ID,
			Title:    m.compose.Value("title"),
			Content:  m.compose.Value("content"),
		}
		return m, func() tea.Msg {
			var t *domain.Topic
			err := mutation(func(ctx context.Context) error {
				var err error
				t, err = svc.Client.CreateTopic(ctx, req)
				return err
			})
			return topicCreatedMsg{topic: t, err: err}
		}
	}
	return m, nil
}

func (m forumModel) updateReply(msg tea.KeyMsg) (forumModel, tea.Cmd) {
	if m.sending {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.state = forumBrowsing
	case "enter":
		text := strings.TrimSpace(m.reply)
		if text == "" || m.topic == nil {
			return m, nil
		}
		m.sending = true
		svc, id := m.svc, m.topic.ID
		return m, func() tea.Msg {
			err := mutation(func(ctx context.Context) error {
				_, err := svc.Client.CreatePost(ctx, client.CreatePostRequest{Topic: id, Content: text})
				return err
			})
			return postCreatedMsg{topicID: id, err: err}
		}
	case "shift+enter", "alt+enter":
		m.reply = editRune(m.reply, "\n")
	default:
		m.reply = editKey(m.reply, msg)
	}
	return m, nil
}

func (m forumModel) updateDeleting(msg tea.KeyMsg) (forumModel, tea.Cmd) {
	switch msg.String() {
	case "y":
		post := m.selectedPost()
		if post == nil {
			m.state = forumBrowsing
			return m, nil
		}
		svc, id := m.svc, post.ID
		return m, func() tea.Msg {
			err := mutation(func(ctx context.Context) error { return svc.Client.DeletePost(ctx, id) })
			return postDeletedMsg{postID: id, err: err}
		}
	case "n", "esc":
		m.state = forumBrowsing
	}
	return m, nil
}

func (m forumModel) isEditing() bool {
	return m.state == forumComposing || m.state == forumReplying
}

func (m forumModel) View() string {
	var b strings.Builder

	crumb := " " + searchStyle.Render("FORUM")
	if m.level >= forumLevelTopics && m.category != nil {
		crumb += dimStyle.Render(" / ") + normalStyle.Render(m.category.Name)
	}
	if m.level == forumLevelTopic && m.topic != nil {
		crumb += dimStyle.Render(" / ") + normalStyle.Render(truncStr(cleanTitle(m.topic.Title), 40))
	}
	b.WriteString(crumb + "\n")
	b.WriteString(separator(m.width))

	if m.statusMsg != "" {
		b.WriteString(" " + statusStyle.Render(m.statusMsg) + "\n")
	}

	if m.state == forumComposing {
		b.WriteString(m.compose.View())
		return b.String()
	}

	if m.loading && (m.level != forumLevelTopic || m.topic == nil || m.topic.Posts == nil) {
		b.WriteString(" " + dimStyle.Render("loading..."))
		return b.String()
	}
	if m.err != nil {
		b.WriteString(" " + errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		return b.String()
	}

	switch m.level {
	case forumLevelTopic:
		b.WriteString(m.viewTopic())
	case forumLevelTopics:
		b.WriteString(m.viewTopics())
	default:
		b.WriteString(m.viewCategories())
	}
	return truncateToHeight(b.String(), m.height)
}

func (m forumModel) viewCategories() string {
	if len(m.categories) == 0 {
		return " " + dimStyle.Render("no forum sections yet")
	}
	var b strings.Builder
	start, end := listWindow(m.catCursor, len(m.categories), m.height-4)
	for i := start; i < end; i++ {
		c := m.categories[i]
		line := normalStyle.Render(fmt.Sprintf("%-28s", truncStr(c.Name, 28))) +
			metaStyle.Render(fmt.Sprintf("%4d topics", c.TopicsCount))
		if c.Description != "" && m.width >= 70 {
			line += "  " + dimStyle.Render(truncStr(cleanTitle(c.Description), m.width-48))
		}
		b.WriteString(renderRow(line, i == m.catCursor, m.width))
	}
	return b.String()
}

func (m forumModel) viewTopics() string {
	if len(m.topics) == 0 {
		return " " + dimStyle.Render("no topics yet. press n to start one")
	}
	var b strings.Builder
	titleWidth := max(m.width-34, 12)
	start, end := listWindow(m.topicCursor, len(m.topics), m.height-4)
	for i := start; i < end; i++ {
		t := m.topics[i]
		mark := "  "
		switch {
		case t.IsPinned:
			mark = pinnedStyle.Render("▲ ")
		case t.IsLocked:
			mark = lockedStyle.Render("■ ")
		}
		author := ""
		if t.Author != nil {
			author = truncStr(t.Author.DisplayName(), 12)
		}
		line := mark + normalStyle.Render(fmt.Sprintf("%-*s", titleWidth, truncStr(cleanTitle(t.Title), titleWidth))) +
			" " + metaStyle.Render(fmt.Sprintf("%-12s %3d↩ %s", author, t.PostsCount, formatTime(t.CreatedAt)))
		b.WriteString(renderRow(line, i == m.topicCursor, m.width))
	}
	return b.String()
}

func (m forumModel) viewTopic() string {
	t := m.topic
	var b strings.Builder
	textWidth := max(m.width-6, 20)

	head := " " + selectedStyle.Render(cleanTitle(t.Title))
	if t.IsPinned {
		head += "  " + pinnedStyle.Render("pinned")
	}
	if t.IsLocked {
		head += "  " + lockedStyle.Render("locked")
	}
	b.WriteString(head + "\n")
	meta := fmt.Sprintf("%d views · %s", t.ViewsCount, formatTime(t.CreatedAt))
	if t.Author != nil {
		meta = t.Author.DisplayName() + " · " + meta
	}
	b.WriteString(" " + metaStyle.Render(meta) + "\n\n")

	for _, line := range wrapText(t.Content, textWidth) {
		b.WriteString(" " + normalStyle.Render(line) + "\n")
	}

	b.WriteString("\n " + sectionHeaderStyle.Render(fmt.Sprintf("── %d REPLIES ──", len(t.Posts))) + "\n")
	if len(t.Posts) == 0 {
		b.WriteString(" " + dimStyle.Render("no replies yet") + "\n")
	}

	start := max(m.postCursor-1, 0)
	for i := start; i < len(t.Posts); i++ {
		p := t.Posts[i]
		cursor := "  "
		if i == m.postCursor {
			cursor = accentStyle.Render("▸") + " "
		}
		name := "deleted user"
		staff := false
		if p.Author != nil {
			name = p.Author.DisplayName()
			staff = p.Author.IsStaff
		}
		likes := metaStyle.Render(fmt.Sprintf("♡ %d", p.LikesCount))
		if p.IsLiked {
			likes = likeStyle.Render(fmt.Sprintf("♥ %d", p.LikesCount))
		}
		edited := ""
		if p.IsEdited {
			edited = metaStyle.Render(" (edited)")
		}
		b.WriteString(" " + cursor + userStyle(staff).Render(name) + " " +
			commentTimeStyle.Render(formatTime(p.CreatedAt)) + edited + "  " + likes + "\n")
		for _, line := range wrapText(p.Content, textWidth-2) {
			b.WriteString("     " + commentTextStyle.Render(line) + "\n")
		}
		if i == m.postCursor && m.likersOf == p.ID {
			b.WriteString("     " + metaStyle.Render(likedBy(m.likers)) + "\n")
		}
	}

	switch m.state {
	case forumReplying:
		b.WriteString("\n " + renderInput("reply ›", m.reply, "write a reply", !m.sending, false) + "\n")
		if m.sending {
			b.WriteString(" " + dimStyle.Render("sending...") + "\n")
		}
	case forumDeleting:
		b.WriteString("\n " + errorStyle.Render("delete this post? y/n") + "\n")
	}
	return b.String()
}

func likedBy(likes []domain.Like) string {
	if len(likes) == 0 {
		return "no likes yet"
	}
	names := make([]string, 0, len(likes))
	for _, l := range likes {
		if l.User != nil {
			names = append(names, l.User.DisplayName())
		}
	}
	if hidden := len(likes) - len(names); hidden > 0 {
		names = append(names, fmt.Sprintf("%d more", hidden))
	}
	return "liked by " + strings.Join(names, ", ")
}

func (m forumModel) helpBar() string {
	switch {
	case m.state == forumComposing:
		return helpEntry("tab", "next field") + "  " + helpEntry("ctrl+s", "post") + "  " + helpEntry("esc", "cancel")
	case m.state == forumReplying:
		return helpEntry("enter", "send") + "  " + helpEntry("shift+enter", "newline") + "  " + helpEntry("esc", "cancel")
	case m.state == forumDeleting:
		return helpEntry("y", "delete") + "  " + helpEntry("n", "keep")
	case m.level == forumLevelTopic:
		h := helpEntry("j/k", "posts") + "  " + helpEntry("c", "reply") + "  " + helpEntry("l", "like") +
			"  " + helpEntry("w", "who liked") + "  " + helpEntry("p", "peek") + "  " + helpEntry("x", "delete")
		if m.svc.currentUser().CanModerate() {
			h += "  " + helpEntry("P/L", "pin/lock")
		}
		return h + "  " + helpEntry("esc", "back")
	case m.level == forumLevelTopics:
		return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "read") + "  " + helpEntry("n", "new topic") +
			"  " + helpEntry("r", "refresh") + "  " + helpEntry("esc", "back")
	default:
		return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "open") + "  " + helpEntry("r", "refresh")
	}
}
